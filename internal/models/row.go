package models

// RowKind is the explicit discriminant written to every remote row
type RowKind string

const (
	KindLibrary  RowKind = "library"
	KindCategory RowKind = "category"
	KindPrompt   RowKind = "prompt"
)

// Row is one flat remote record. Library fields repeat on every row so the tree can be
// rebuilt from a single linear scan.
type Row struct {
	// RecordID is the remote identifier, set only on rows read back from the service
	RecordID string

	Kind         RowKind
	LibraryID    string
	LibraryName  string
	CategoryID   string
	CategoryName string
	PromptID     string
	Text         string
	Chinese      string
	Remark       string
	ImageURL     string
}

// Remote column names, shared by every table backend
const (
	FieldKind         = "Kind"
	FieldLibraryID    = "LibraryID"
	FieldLibraryName  = "LibraryName"
	FieldCategoryID   = "CategoryID"
	FieldCategoryName = "CategoryName"
	FieldPromptID     = "PromptID"
	FieldText         = "Text"
	FieldChinese      = "Chinese"
	FieldRemark       = "Remark"
	FieldImageURL     = "ImageURL"
)

// Fields returns the row as column name to value, in the fixed column order
func (r Row) Fields() map[string]string {
	return map[string]string{
		FieldKind:         string(r.Kind),
		FieldLibraryID:    r.LibraryID,
		FieldLibraryName:  r.LibraryName,
		FieldCategoryID:   r.CategoryID,
		FieldCategoryName: r.CategoryName,
		FieldPromptID:     r.PromptID,
		FieldText:         r.Text,
		FieldChinese:      r.Chinese,
		FieldRemark:       r.Remark,
		FieldImageURL:     r.ImageURL,
	}
}

// RowFromFields builds a row from decoded column values. Unknown columns are ignored.
func RowFromFields(recordID string, fields map[string]string) Row {
	return Row{
		RecordID:     recordID,
		Kind:         RowKind(fields[FieldKind]),
		LibraryID:    fields[FieldLibraryID],
		LibraryName:  fields[FieldLibraryName],
		CategoryID:   fields[FieldCategoryID],
		CategoryName: fields[FieldCategoryName],
		PromptID:     fields[FieldPromptID],
		Text:         fields[FieldText],
		Chinese:      fields[FieldChinese],
		Remark:       fields[FieldRemark],
		ImageURL:     fields[FieldImageURL],
	}
}

// Columns lists every remote column name in display order
var Columns = []string{
	FieldKind, FieldLibraryID, FieldLibraryName, FieldCategoryID, FieldCategoryName,
	FieldPromptID, FieldText, FieldChinese, FieldRemark, FieldImageURL,
}
