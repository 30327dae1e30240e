package templates

// DefaultFooterNote is shown in the shared layout when a page does not supply custom text.
const DefaultFooterNote = "Suggestions are written by a language model. Check search volumes before committing to a keyword."

// HomePageData contains the form state and any generated keywords.
type HomePageData struct {
	Keyword      string
	Keywords     []string
	ErrorMessage string
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	Title       string
	StatusLabel string
	Message     string
}

func (d ErrorPageData) pageTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.StatusLabel
}
