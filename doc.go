// Package wire writes structured values and interface-style calls to a byte
// stream, and reads them back. Every value is self-describing, so readers need
// no schema and tolerate added, missing and reordered fields.
//
// A Wire binds a Bytes to one of three interchangeable codecs: Binary, a
// compact tagged form; Text, YAML; and JSON. Documents are framed with a
// 4-byte prefix holding the payload length and two flags, so a reader can
// consume a stream while it is being written and skip what it doesn't
// understand.
//
// On top of framing, MethodWriter and MethodReader turn calls on an Interface
// into documents and back, optionally stamping each message with a
// MessageHistory recording the sources it passed through. A PathClassifier
// maps those histories to application-defined paths.
package wire
