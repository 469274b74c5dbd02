package models

// Language is one entry of the language selector.
type Language struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Languages is the fixed set of languages a review can target.
var Languages = []Language{
	{Value: "javascript", Label: "JavaScript"},
	{Value: "typescript", Label: "TypeScript"},
	{Value: "python", Label: "Python"},
	{Value: "java", Label: "Java"},
	{Value: "go", Label: "Go"},
	{Value: "csharp", Label: "C#"},
	{Value: "cpp", Label: "C++"},
	{Value: "c", Label: "C"},
	{Value: "ruby", Label: "Ruby"},
	{Value: "php", Label: "PHP"},
	{Value: "rust", Label: "Rust"},
	{Value: "kotlin", Label: "Kotlin"},
	{Value: "swift", Label: "Swift"},
	{Value: "sql", Label: "SQL"},
	{Value: "html", Label: "HTML"},
	{Value: "css", Label: "CSS"},
}

// DefaultLanguage is selected when a fresh review session starts.
var DefaultLanguage = Languages[0].Value

// IsLanguage reports whether v is one of Languages.
func IsLanguage(v string) bool {
	for _, l := range Languages {
		if l.Value == v {
			return true
		}
	}
	return false
}
