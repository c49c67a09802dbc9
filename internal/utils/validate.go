package utils

import (
	dg "github.com/bwmarrin/discordgo"
)

const (
	maxEmbedTitleLength       = 256
	maxEmbedDescriptionLength = 4096
	maxEmbedFields            = 25
	maxFieldNameLength        = 256
	maxFieldValueLength       = 1024
	maxEmbedTotalLength       = 6000
)

type ValidationResult struct {
	Embed       *dg.MessageEmbed
	IsValid     bool
	WasModified bool
	Errors      []string
}

// ValidateEmbed truncates an embed to the platform's limits so free text
// collected from users cannot get the whole message rejected.
func ValidateEmbed(embed *dg.MessageEmbed) ValidationResult {
	result := ValidationResult{
		Embed:   embed,
		IsValid: true,
	}

	if len(embed.Title) > maxEmbedTitleLength {
		result.Embed.Title = truncate(embed.Title, maxEmbedTitleLength)
		result.WasModified = true
		result.Errors = append(result.Errors, "Embed title was truncated")
	}

	if len(embed.Description) > maxEmbedDescriptionLength {
		result.Embed.Description = truncate(embed.Description, maxEmbedDescriptionLength)
		result.WasModified = true
		result.Errors = append(result.Errors, "Embed description was truncated")
	}

	if len(embed.Fields) > maxEmbedFields {
		result.Embed.Fields = embed.Fields[:maxEmbedFields]
		result.WasModified = true
		result.Errors = append(result.Errors, "Excess fields were removed")
	}

	for i, field := range result.Embed.Fields {
		if len(field.Name) > maxFieldNameLength {
			result.Embed.Fields[i].Name = truncate(field.Name, maxFieldNameLength)
			result.WasModified = true
			result.Errors = append(result.Errors, "Field name was truncated")
		}

		if len(field.Value) > maxFieldValueLength {
			result.Embed.Fields[i].Value = truncate(field.Value, maxFieldValueLength)
			result.WasModified = true
			result.Errors = append(result.Errors, "Field value was truncated")
		}
	}

	if embedLength(result.Embed) > maxEmbedTotalLength {
		result.IsValid = false
		result.Errors = append(result.Errors, "Embed exceeds total length limit")
	}

	return result
}

func embedLength(embed *dg.MessageEmbed) int {
	total := len(embed.Title) + len(embed.Description)
	for _, field := range embed.Fields {
		total += len(field.Name) + len(field.Value)
	}
	return total
}

// truncate cuts s to at most n bytes, ending with an ellipsis, without
// splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	const ellipsis = "…"
	return s[:runeBoundary(s, n-len(ellipsis))] + ellipsis
}
