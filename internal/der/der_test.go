package der

import (
	"bytes"
	"encoding/asn1"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		want []byte
		enc  []byte
	}{
		{"octet string", []byte("hello"), EncodeOctetString([]byte("hello"))},
		{"empty octet string", []byte{}, EncodeOctetString([]byte{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadOctetString(bytes.NewReader(tt.enc))
			if err != nil {
				t.Fatalf("ReadOctetString() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("ReadOctetString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntegerRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, 127, 128, 255, 256, 1<<31 - 1} {
		enc := EncodeInteger(v)
		got, err := ReadInteger(bytes.NewReader(enc))
		if err != nil {
			t.Fatalf("ReadInteger(%d) error = %v", v, err)
		}
		if got != v {
			t.Errorf("ReadInteger(%d) = %d", v, got)
		}
	}
}

func TestEncodeIntegerNegativePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for negative integer")
		}
	}()
	EncodeInteger(-1)
}

func TestObjectIdentifierRoundTrip(t *testing.T) {
	oid := asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	enc := EncodeObjectIdentifier(oid)
	got, err := ReadObjectIdentifier(bytes.NewReader(enc))
	if err != nil {
		t.Fatalf("ReadObjectIdentifier() error = %v", err)
	}
	if !got.Equal(oid) {
		t.Errorf("ReadObjectIdentifier() = %v, want %v", got, oid)
	}
}

func TestSequenceRoundTrip(t *testing.T) {
	seq := EncodeSequence(
		EncodeOctetString([]byte("magic")),
		EncodeInteger(42),
	)

	body, _, bodyLen, err := ReadSequenceHeader(bytes.NewReader(seq))
	if err != nil {
		t.Fatalf("ReadSequenceHeader() error = %v", err)
	}
	if bodyLen <= 0 {
		t.Fatalf("bodyLen = %d, want > 0", bodyLen)
	}

	magic, err := ReadOctetString(body)
	if err != nil {
		t.Fatalf("ReadOctetString() error = %v", err)
	}
	if string(magic) != "magic" {
		t.Errorf("magic = %q", magic)
	}

	n, err := ReadInteger(body)
	if err != nil {
		t.Fatalf("ReadInteger() error = %v", err)
	}
	if n != 42 {
		t.Errorf("n = %d, want 42", n)
	}
}

func TestReadElementTruncated(t *testing.T) {
	_, err := ReadOctetString(bytes.NewReader([]byte{TagOctetString}))
	var derErr *DecodeError
	if err == nil {
		t.Fatal("expected error")
	}
	if !asErrorAs(err, &derErr) || derErr.Kind != Truncated {
		t.Errorf("err = %v, want Truncated", err)
	}
}

func TestReadElementTagMismatch(t *testing.T) {
	enc := EncodeInteger(5)
	_, err := ReadOctetString(bytes.NewReader(enc))
	var derErr *DecodeError
	if !asErrorAs(err, &derErr) || derErr.Kind != TagMismatch {
		t.Errorf("err = %v, want TagMismatch", err)
	}
}

func TestReadElementIndefiniteLengthRejected(t *testing.T) {
	// tag + indefinite-length octet (0x80), which DER forbids.
	buf := []byte{TagOctetString, 0x80}
	_, err := ReadOctetString(bytes.NewReader(buf))
	var derErr *DecodeError
	if !asErrorAs(err, &derErr) || derErr.Kind != NonCanonical {
		t.Errorf("err = %v, want NonCanonical", err)
	}
}

func TestReadElementNonMinimalLongFormRejected(t *testing.T) {
	// Long-form length claiming 1 length octet with value < 0x80, which
	// should have been encoded in short form.
	buf := []byte{TagOctetString, 0x81, 0x05, 'h', 'e', 'l', 'l', 'o'}
	_, err := ReadOctetString(bytes.NewReader(buf))
	var derErr *DecodeError
	if !asErrorAs(err, &derErr) || derErr.Kind != NonCanonical {
		t.Errorf("err = %v, want NonCanonical", err)
	}
}

func asErrorAs(err error, target **DecodeError) bool {
	de, ok := err.(*DecodeError)
	if !ok {
		return false
	}
	*target = de
	return true
}
