package parser

import (
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

var mediaExtensions = map[string]struct{}{
	// images
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "webp": {}, "bmp": {},
	// audio
	"mp3": {}, "wav": {}, "ogg": {}, "flac": {}, "m4a": {},
	// video
	"mp4": {}, "webm": {}, "mkv": {}, "mov": {}, "avi": {},
}

// ExtractMedia walks the markdown link and image destinations in body and
// returns, in source order, the paths whose extension is a recognized
// media type. Relative paths are resolved against baseDir, the deck
// file's directory.
func ExtractMedia(body, baseDir string) []string {
	md := goldmark.New()
	doc := md.Parser().Parse(gmtext.NewReader([]byte(body)))

	var refs []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var dest string
		switch v := n.(type) {
		case *ast.Link:
			dest = string(v.Destination)
		case *ast.Image:
			dest = string(v.Destination)
		default:
			return ast.WalkContinue, nil
		}
		if !isMediaPath(dest) {
			return ast.WalkContinue, nil
		}
		refs = append(refs, resolveMediaPath(dest, baseDir))
		return ast.WalkContinue, nil
	})
	return refs
}

func isMediaPath(dest string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(dest), "."))
	_, ok := mediaExtensions[ext]
	return ok
}

func resolveMediaPath(dest, baseDir string) string {
	if filepath.IsAbs(dest) || baseDir == "" {
		return dest
	}
	return filepath.Join(baseDir, dest)
}
