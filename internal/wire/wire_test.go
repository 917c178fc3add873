package wire_test

import (
	"math/big"
	"testing"

	"github.com/cloudpines/osshkey/internal/wire"
)

func TestUint32RoundTrip(t *testing.T) {
	e := wire.NewEncoder(4)
	e.Uint32(0xdeadbeef)

	d := wire.NewDecoder(e.Bytes())
	got, err := d.Uint32()
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xdeadbeef {
		t.Fatalf("got %x, want deadbeef", got)
	}
	if !d.IsFinished() {
		t.Fatal("decoder should be finished")
	}
}

func TestStringRoundTrip(t *testing.T) {
	e := wire.NewEncoder(16)
	if err := e.EncodeString("hello world"); err != nil {
		t.Fatal(err)
	}

	d := wire.NewDecoder(e.Bytes())
	got, err := d.String()
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestBytesOverrun(t *testing.T) {
	e := wire.NewEncoder(4)
	e.Uint32(10) // claims 10 bytes follow, but none do

	d := wire.NewDecoder(e.Bytes())
	if _, err := d.Bytes(); err == nil {
		t.Fatal("expected an overrun error")
	}
}

func TestMpintRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 127, 128, 255, 256, 1 << 30}
	for _, c := range cases {
		n := big.NewInt(c)
		e := wire.NewEncoder(8)
		if err := e.Mpint(n); err != nil {
			t.Fatal(err)
		}
		if e.Len() != wire.MpintLen(n) {
			t.Fatalf("MpintLen(%d) = %d, encoded %d bytes", c, wire.MpintLen(n), e.Len())
		}

		d := wire.NewDecoder(e.Bytes())
		got, err := d.Mpint()
		if err != nil {
			t.Fatal(err)
		}
		if got.Cmp(n) != 0 {
			t.Fatalf("got %s, want %d", got, c)
		}
	}
}

func TestMpintHighBitPadding(t *testing.T) {
	// 0x80 alone would look like a negative two's-complement byte; the
	// encoder must prepend a zero byte.
	n := big.NewInt(0x80)
	e := wire.NewEncoder(8)
	if err := e.Mpint(n); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x00, 0x00, 0x02, 0x00, 0x80}
	if string(e.Bytes()) != string(want) {
		t.Fatalf("got % x, want % x", e.Bytes(), want)
	}
}

func TestLengthPrefixedMustConsumeAll(t *testing.T) {
	e := wire.NewEncoder(8)
	if err := e.EncodeBytes([]byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	d := wire.NewDecoder(e.Bytes())
	_, err := wire.LengthPrefixed(d, func(sub *wire.Decoder) (struct{}, error) {
		_, err := sub.Raw(1) // only consume one of the three bytes
		return struct{}{}, err
	})
	if err == nil {
		t.Fatal("expected an error for a partially consumed region")
	}
}

func TestLengthPrefixedNested(t *testing.T) {
	inner := wire.NewEncoder(4)
	inner.Uint32(7)

	outer := wire.NewEncoder(8)
	if err := outer.EncodeBytes(inner.Bytes()); err != nil {
		t.Fatal(err)
	}

	d := wire.NewDecoder(outer.Bytes())
	got, err := wire.LengthPrefixed(d, func(sub *wire.Decoder) (uint32, error) {
		return sub.Uint32()
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}
