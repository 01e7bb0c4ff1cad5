// Package pathutil implements path normalization (spec.md C7):
// resolving a possibly-relative path against a working directory into
// an absolute, "."/".."-free form, and splitting an absolute path into
// its parent and basename.
//
// Both operations are plain string/slice algorithms over '/'-joined
// components; they never touch the backing store.
package pathutil

import "strings"

// Absolutize resolves path against cwd the way a shell resolves a
// command argument against its working directory: a leading "/"
// anchors at the root, a leading "." or ".." walks from cwd, anything
// else is appended to cwd. "." and ".." components anywhere else in
// path are then collapsed against the tokens accumulated so far,
// never popping past the root.
func Absolutize(path, cwd string) string {
	pathComponents := strings.Split(path, "/")
	cwdComponents := nonEmpty(strings.Split(cwd, "/"))

	// The leading "" token is the root, so the joined result always
	// starts with "/".
	tokens := []string{""}
	hasChange := false

	if len(pathComponents) > 0 {
		first := pathComponents[0]
		switch {
		case first == "":
			// Absolute path: already anchored at the root token.
		case first == ".":
			hasChange = true
			tokens = append(tokens, cwdComponents...)
		case first == "..":
			hasChange = true
			if len(cwdComponents) > 0 {
				tokens = append(tokens, cwdComponents[:len(cwdComponents)-1]...)
			}
		default:
			hasChange = true
			tokens = append(tokens, cwdComponents...)
			tokens = append(tokens, first)
		}

		for _, component := range pathComponents[1:] {
			switch component {
			case ".":
				hasChange = true
			case "..":
				hasChange = true
				if len(tokens) > 0 && tokens[len(tokens)-1] != "" {
					tokens = tokens[:len(tokens)-1]
				}
			default:
				tokens = append(tokens, component)
			}
		}
	}

	if len(tokens) == 0 || (len(tokens) == 1 && tokens[0] == "") {
		return "/"
	}
	if hasChange {
		return strings.Join(tokens, "/")
	}
	return path
}

// Split divides an absolute path into its parent directory and its
// final component. Split("/a/b/c") is ("/a/b", "c"); Split("/a") is
// ("/", "a"); Split("/") is ("/", "").
func Split(path string) (parent, name string) {
	parts := strings.Split(path, "/")
	parentParts := parts[:len(parts)-1]
	parent = strings.Join(parentParts, "/")
	if parent == "" {
		parent = "/"
	}
	name = parts[len(parts)-1]
	return parent, name
}

func nonEmpty(components []string) []string {
	out := components[:0:0]
	for _, c := range components {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
