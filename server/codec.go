package server

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content subtype of the debugger protocol: messages
// are plain Go structs encoded as CBOR ("application/grpc+cbor").
const codecName = "cbor"

var msgEncMode cbor.EncMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("server: failed to create CBOR enc mode: %v", err))
	}
	msgEncMode = em
	encoding.RegisterCodec(cborCodec{})
}

type cborCodec struct{}

func (cborCodec) Marshal(v any) ([]byte, error) { return msgEncMode.Marshal(v) }

func (cborCodec) Unmarshal(data []byte, v any) error { return cbor.Unmarshal(data, v) }

func (cborCodec) Name() string { return codecName }
