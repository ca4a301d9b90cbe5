package token

import (
	"bytes"
	"encoding/binary"

	"syncgate/pkg/apperrors"
)

// 二进制布局按字段顺序写入，读写必须严格对称：
// 字符串和列表均带长度前缀，整数统一小端。

type binaryWriter struct {
	buf bytes.Buffer
}

func (w *binaryWriter) writeBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *binaryWriter) writeUint(v uint) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.buf.Write(b[:])
}

func (w *binaryWriter) writeInt64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.buf.Write(b[:])
}

func (w *binaryWriter) writeString(s string) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(s)))
	w.buf.Write(b[:])
	w.buf.WriteString(s)
}

func (w *binaryWriter) writeCount(n int) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(n))
	w.buf.Write(b[:])
}

func (w *binaryWriter) bytes() []byte {
	return w.buf.Bytes()
}

type binaryReader struct {
	data []byte
	pos  int
}

func (r *binaryReader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, apperrors.InvalidToken("token payload truncated")
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *binaryReader) readBool() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (r *binaryReader) readUint() (uint, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return uint(binary.LittleEndian.Uint64(b)), nil
}

func (r *binaryReader) readInt64() (int64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (r *binaryReader) readCount() (int, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	n := binary.LittleEndian.Uint32(b)
	if int(n) > len(r.data) {
		return 0, apperrors.InvalidToken("token payload truncated")
	}
	return int(n), nil
}

func (r *binaryReader) readString() (string, error) {
	n, err := r.readCount()
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// remaining 是否还有未读字节
func (r *binaryReader) remaining() bool {
	return r.pos < len(r.data)
}
