// Package templates holds the templ components rendered by the web server.
//
// The *_templ.go files are generated from the .templ sources with
// `templ generate`. Handlers render pages and HTMX fragments the same way:
//
//	templates.Index(data).Render(r.Context(), w)
package templates
