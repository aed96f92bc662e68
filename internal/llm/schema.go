package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "JobFields")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint shown to the model
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildInstruction renders the schema as a system instruction. The page
// content is sent separately as the final user message.
func BuildInstruction(schema ExtractionSchema) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "\"string\""
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the page, do not invent values.\n")
	sb.WriteString("- Use an empty string and a confidence of 0 for anything the page does not state.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n")

	return sb.String()
}

// JobFieldsSchema returns the extraction schema for a single job posting.
func JobFieldsSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "JobFields",
		Description: `You are an expert job posting parser. Read the page content of a single job posting
and extract the job title, the hiring company, the work location and whether the role is remote.
Rate your confidence in each field between 0 and 1.
IGNORE: navigation, cookie banners, similar-jobs lists, EEO statements and legal disclaimers.`,
		Fields: []SchemaField{
			{
				Name:        "title",
				Type:        "\"string\"",
				Description: "Exact job title as written in the posting, without company name or location",
				Required:    true,
			},
			{
				Name:        "company",
				Type:        "\"string\"",
				Description: "Name of the hiring company, not the job board",
				Required:    true,
			},
			{
				Name:        "location",
				Type:        "\"string\"",
				Description: "City, region or country as written; empty if not stated",
				Required:    true,
			},
			{
				Name:        "remote",
				Type:        "boolean",
				Description: "true if the posting says the role is remote or remote-friendly",
				Required:    true,
			},
			{
				Name:        "confidence",
				Type:        "{\"title\": number, \"company\": number, \"location\": number, \"overall\": number}",
				Description: "Confidence per field between 0 and 1",
				Required:    true,
			},
			{
				Name:        "extraction_notes",
				Type:        "\"string\"",
				Description: "Short note about anything ambiguous",
				Required:    false,
			},
		},
	}
}
