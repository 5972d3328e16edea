package rag

import (
	"fmt"
	"strings"

	"github.com/askclass/backend/internal/vectorstore"
)

const (
	PersonalitySupportive = "supportive"
	PersonalityNormal     = "normal"
	PersonalityFunny      = "funny"
)

var personalityInstructions = map[string]string{
	PersonalitySupportive: "Be warm and encouraging, and walk through explanations step by step so the student builds confidence.",
	PersonalityNormal:     "Be concise and professional.",
	PersonalityFunny:      "Use light, tasteful humor where it helps, but never at the expense of accuracy.",
}

func personalityInstruction(personality string) string {
	if instr, ok := personalityInstructions[personality]; ok {
		return instr
	}
	return personalityInstructions[PersonalityNormal]
}

// buildSystemPrompt assembles the grounded system prompt. With material
// available the model is told to answer strictly from it and to admit when
// it does not cover the question; with none, to tell the student no course
// materials are available rather than guessing.
func buildSystemPrompt(personality string, sources []vectorstore.GroundingSource) string {
	var sb strings.Builder
	sb.WriteString("You are an AI teaching assistant for a university lecture. ")
	sb.WriteString(personalityInstruction(personality))
	sb.WriteString("\n\n")

	if len(sources) == 0 {
		sb.WriteString("No course materials are currently available for this session. ")
		sb.WriteString("Let the student know their question cannot be answered from course materials right now. Do not guess.")
		return sb.String()
	}

	sb.WriteString("Answer the student's question using ONLY the following course materials. ")
	sb.WriteString("If the answer cannot be found in the materials, say so clearly, do not use outside knowledge.\n\n")
	sb.WriteString("--- Course Materials ---\n")
	for _, src := range sources {
		if src.PageNumber != nil {
			fmt.Fprintf(&sb, "[%s, page %d] %s\n", src.Filename, *src.PageNumber, src.Content)
		} else {
			fmt.Fprintf(&sb, "[%s] %s\n", src.Filename, src.Content)
		}
	}
	sb.WriteString("---")
	return sb.String()
}
