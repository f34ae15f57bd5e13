// Package web embeds the templates and static assets served by cmd/finx.
package web

import "embed"

// TemplatesFS holds templates/*.html.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and client script.
//
//go:embed static/*
var StaticFS embed.FS
