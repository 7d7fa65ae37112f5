package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Side indicates the direction of an order or position.
// The sign matches the sign of the base asset quantity.
type Side int8

const (
	SideLong  Side = 1
	SideShort Side = -1
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	return -s
}

func (s Side) String() string {
	if s == SideLong {
		return "long"
	}
	return "short"
}

// SideOf returns the side implied by a signed base asset quantity.
// A zero quantity has no side; callers must reject it first.
func SideOf(baseAssetQuantity int64) Side {
	if baseAssetQuantity > 0 {
		return SideLong
	}
	return SideShort
}

// Order is a limit order for a perpetual futures market. All monetary
// fields are fixed-point with 6 decimals (micro-units). An order is
// immutable once hashed: the hash is its identity and is permanently
// consumed once the order reaches any non-Invalid status.
type Order struct {
	Market            int64
	Trader            string
	BaseAssetQuantity int64 // signed; positive = long, negative = short
	Price             int64
	Salt              int64
	ReduceOnly        bool
	PostOnly          bool
}

// Side returns the order's direction. Undefined for a zero quantity.
func (o *Order) Side() Side {
	return SideOf(o.BaseAssetQuantity)
}

// Size returns the magnitude of the base asset quantity.
func (o *Order) Size() int64 {
	if o.BaseAssetQuantity < 0 {
		return -o.BaseAssetQuantity
	}
	return o.BaseAssetQuantity
}

// Hash computes the content-addressed identity of the order: a sha256
// over a fixed binary encoding of every field. Two orders differing in
// any field (including the salt) hash differently.
func (o *Order) Hash() string {
	h := sha256.New()

	var buf [8]byte
	writeInt := func(v int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}

	writeInt(o.Market)
	writeInt(int64(len(o.Trader)))
	h.Write([]byte(o.Trader))
	writeInt(o.BaseAssetQuantity)
	writeInt(o.Price)
	writeInt(o.Salt)

	var flags byte
	if o.ReduceOnly {
		flags |= 1
	}
	if o.PostOnly {
		flags |= 2
	}
	h.Write([]byte{flags})

	return hex.EncodeToString(h.Sum(nil))
}
