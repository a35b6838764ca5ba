package hoard

import "encoding/json"

// RemoteItem is a single unit fetched from a remote API: one repository
// descriptor in mirror mode, or one endpoint's full response in snapshot mode.
// Name is the stable identifier and must be unique within one fetch pass.
type RemoteItem struct {
	Name     string
	URL      string // clone URL (mirror) or source endpoint (snapshot)
	Fork     bool
	Archived bool
	Payload  json.RawMessage // raw response data, opaque to the sync engine
}

// SanitizeName maps a remote identifier to a filesystem-safe name.
// ASCII letters, digits, '.', '_' and '-' pass through; every other byte
// becomes '_'. Names that would escape the archive root ("", "." and "..")
// map to "_".
func SanitizeName(name string) string {
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	b := []byte(name)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}
