package middleware

import (
	"fmt"
	"html"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const placeholderLogo = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 200"><rect width="200" height="200" rx="32" fill="%s"/><text x="100" y="128" text-anchor="middle" font-family="Arial" font-size="96" fill="#ffffff">%s</text></svg>`

// BrandingSource supplies the configured application name and color.
type BrandingSource interface {
	Branding() (name, color, logo string)
}

// StaticFileServer serves branding assets from dir. A missing logo (logo.svg, logo.png,
// ...) is answered with a placeholder in the configured brand color; any other missing
// file is a 404.
func StaticFileServer(dir string, branding BrandingSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))

		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			w.Header().Set("Cache-Control", "public, max-age=2592000")
			http.ServeFile(w, r, file)
			return
		}

		if !isLogoPath(r.URL.Path) {
			http.NotFound(w, r)
			return
		}

		name, color, _ := branding.Branding()
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=300")
		fmt.Fprintf(w, placeholderLogo, html.EscapeString(brandColor(color)), html.EscapeString(initial(name)))
	})
}

func isLogoPath(p string) bool {
	base := path.Base(p)
	ext := path.Ext(base)
	if strings.TrimSuffix(base, ext) != "logo" {
		return false
	}
	switch strings.ToLower(ext) {
	case ".svg", ".png", ".jpg", ".jpeg", ".webp", ".ico":
		return true
	}
	return false
}

func brandColor(color string) string {
	if color == "" {
		return "#ea580c"
	}
	return color
}

func initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "S"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return strings.ToUpper(string(r))
}
