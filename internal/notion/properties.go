package notion

import (
	"strings"

	"github.com/jomei/notionapi"

	"github.com/takak2166/promptsync/internal/models"
)

// title is what a row shows in the Notion title column
func title(row models.Row) string {
	switch {
	case row.Text != "":
		return row.Text
	case row.CategoryName != "":
		return row.CategoryName
	default:
		return row.LibraryName
	}
}

func encodeRow(row models.Row) notionapi.Properties {
	props := notionapi.Properties{
		TitleColumn: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(title(row)),
		},
	}
	for name, value := range row.Fields() {
		if value == "" {
			continue
		}
		props[name] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(value),
		}
	}
	return props
}

// richText splits s into segments Notion accepts
func richText(s string) []notionapi.RichText {
	var out []notionapi.RichText
	for _, chunk := range chunkRunes(s, maxTextLen) {
		out = append(out, notionapi.RichText{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: chunk},
		})
	}
	return out
}

func chunkRunes(s string, size int) []string {
	runes := []rune(s)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

func decodePage(p notionapi.Page) models.Row {
	fields := make(map[string]string, len(models.Columns))
	for _, name := range models.Columns {
		if prop, ok := p.Properties[name]; ok {
			fields[name] = propertyText(prop)
		}
	}
	return models.RowFromFields(string(p.ID), fields)
}

// propertyText reads text-like properties. Decoded pages carry pointers, locally built ones values.
func propertyText(prop notionapi.Property) string {
	switch v := prop.(type) {
	case *notionapi.RichTextProperty:
		return plainText(v.RichText)
	case notionapi.RichTextProperty:
		return plainText(v.RichText)
	case *notionapi.TitleProperty:
		return plainText(v.Title)
	case notionapi.TitleProperty:
		return plainText(v.Title)
	case *notionapi.URLProperty:
		return v.URL
	case notionapi.URLProperty:
		return v.URL
	case *notionapi.SelectProperty:
		return v.Select.Name
	case notionapi.SelectProperty:
		return v.Select.Name
	default:
		return ""
	}
}

func plainText(segments []notionapi.RichText) string {
	var b strings.Builder
	for _, seg := range segments {
		switch {
		case seg.PlainText != "":
			b.WriteString(seg.PlainText)
		case seg.Text != nil:
			b.WriteString(seg.Text.Content)
		}
	}
	return b.String()
}
