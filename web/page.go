// Package web renders the server side HTML pages.
package web

// Page is the data passed to every template.
type Page struct {
	Title         string
	UserName      string
	Authenticated bool
	CSRFToken     string
	Flash         string
	Errors        map[string]string
	Old           map[string]string
	Providers     []ProviderLink
	Data          any
}

// ProviderLink is a "sign in with" button.
type ProviderLink struct {
	Name string
	URL  string
}

// Error returns the validation message for field, if any.
func (p Page) Error(field string) string {
	return p.Errors[field]
}

// Value returns the previously submitted value for field.
func (p Page) Value(field string) string {
	return p.Old[field]
}
