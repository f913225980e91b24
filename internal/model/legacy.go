package model

// LegacyCategory is one entry of the older, non-relational backup format:
// a category with its items and their completion flags inlined.
type LegacyCategory struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	IsOpen bool         `json:"isOpen"`
	Items  []LegacyItem `json:"items"`
}

// LegacyItem is a checklist line inside a LegacyCategory.
type LegacyItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}
