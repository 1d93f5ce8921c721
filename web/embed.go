package web

import "embed"

// TemplatesFS holds the dashboard and error pages.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
