package models

// Library is a top-level named collection that exclusively owns its categories and prompts
type Library struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
	Prompts    []Prompt   `json:"prompts"`
}

// Category groups prompts within one library
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Prompt is a reusable text snippet. CategoryID may dangle; it is not enforced.
type Prompt struct {
	ID         string `json:"id"`
	CategoryID string `json:"categoryId"`
	Text       string `json:"text"`
	Chinese    string `json:"chinese,omitempty"`
	Remark     string `json:"remark,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
}

// UnknownCategory is the display name for a prompt whose category no longer exists
const UnknownCategory = "unknown category"

// Category returns the category with the given id
func (l *Library) Category(id string) (*Category, bool) {
	for i := range l.Categories {
		if l.Categories[i].ID == id {
			return &l.Categories[i], true
		}
	}
	return nil, false
}

// Prompt returns the prompt with the given id
func (l *Library) Prompt(id string) (*Prompt, bool) {
	for i := range l.Prompts {
		if l.Prompts[i].ID == id {
			return &l.Prompts[i], true
		}
	}
	return nil, false
}

// CategoryName resolves a category id for display, tolerating dangling references
func (l *Library) CategoryName(id string) string {
	if c, ok := l.Category(id); ok {
		return c.Name
	}
	return UnknownCategory
}

// FindLibrary returns the index of the library with the given id, or -1
func FindLibrary(libs []Library, id string) int {
	for i := range libs {
		if libs[i].ID == id {
			return i
		}
	}
	return -1
}
