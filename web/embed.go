// Package web holds the server-rendered templates and the browser assets.
package web

import "embed"

// TemplatesFS holds the page templates; layout.html defines the shared
// "head" and "foot" blocks.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the dashboard script.
//
//go:embed static/*
var StaticFS embed.FS
