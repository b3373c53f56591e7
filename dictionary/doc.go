// Package dictionary implements an indexed flat-file dictionary: a
// finite, index-addressable sequence of byte payloads that supports
// positional lookup (get(i)) and, when built from sorted input, reverse
// lookup by value (indexOf(v)).
//
// Two on-disk container versions are supported. V1 packs everything into
// a single buffer: a small header, an offsets table, and the payload
// region. V2 splits large dictionaries across a header file and N value
// files, addressed by index>>exp. Both are read through segwin.Window,
// a zero-copy byte-window primitive, and both are generic over a payload
// codec (Codec[T]) that knows how to encode, decode, and optionally
// compare values of type T.
package dictionary
