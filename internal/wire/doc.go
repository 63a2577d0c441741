// Package wire provides the byte cursors used by field codecs.
//
// The encoding is the packed little-endian ROS serialization: fixed-width
// primitives with no padding, strings as a uint32 byte count followed by the
// raw bytes. Reader, Writer and Sizer walk the same shapes so a value measured
// by Sizer occupies exactly the bytes Writer produces and Reader consumes.
package wire
