// Package schema defines the typed records read from the Amplenote cache.
//
// # Overview
//
// Amplenote keeps a local SQLite cache of notes and tasks. Most task columns
// are flat scalars, but two of them carry JSON payloads:
//
//   - attrs: a sparse metadata bag (timestamps, scheduling strings, flags,
//     scoring fields, references). Every key is optional.
//   - content: a small rich-text tree of paragraphs holding text runs,
//     links and hard breaks.
//
// This package parses both payloads into closed Go types. Parsing is strict
// about the keys it knows (a wrong-typed field fails the whole payload) and
// lenient about the keys it does not (they are ignored).
//
// # Attribute names
//
// Amplenote writes camelCase keys (createdAt, victoryValue). Both the
// camelCase and the snake_case spelling are accepted on input; output always
// uses snake_case:
//
//	attrs, err := schema.ParseAttributes([]byte(`{"createdAt": 1700000000, "flags": "IU"}`))
//	if err != nil {
//	    return err
//	}
//	attrs.HasAllFlags("UI") // true
//
// # Documents
//
// A Document flattens to plain text with PlainText:
//
//	doc, err := schema.ParseDocument(raw)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(doc.PlainText())
//
// Failures from either parser wrap ErrMalformedPayload.
package schema
