package modelapi

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bjaus/modelapi/internal/jsonutil"
)

// Encoder encodes response values to a wire format.
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, v any) error
}

// Decoder decodes request bodies from a wire format.
type Decoder interface {
	ContentType() string
	Decode(r io.Reader, v any) error
}

// jsonCodec implements both Encoder and Decoder for JSON.
type jsonCodec struct{}

func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(w io.Writer, v any) error {
	return jsonutil.Encode(w, v)
}

func (jsonCodec) Decode(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return jsonutil.Unmarshal(data, v)
}

// yamlCodec implements both Encoder and Decoder for YAML. Values are
// encoded through their JSON form so json tags name the keys.
type yamlCodec struct{}

func (yamlCodec) ContentType() string { return "application/yaml" }

func (yamlCodec) Encode(w io.Writer, v any) error {
	data, err := jsonutil.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := jsonutil.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func (yamlCodec) Decode(r io.Reader, v any) error {
	err := yaml.NewDecoder(r).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// codecRegistry holds all registered encoders and decoders.
// Index 0 is always JSON (the default).
type codecRegistry struct {
	encoders []Encoder
	decoders []Decoder
}

// newCodecRegistry builds a registry with JSON first, YAML second, then any
// user-registered encoders and decoders.
func newCodecRegistry(userEncoders []Encoder, userDecoders []Decoder) *codecRegistry {
	cr := &codecRegistry{
		encoders: make([]Encoder, 0, 2+len(userEncoders)),
		decoders: make([]Decoder, 0, 2+len(userDecoders)),
	}
	cr.encoders = append(cr.encoders, jsonCodec{}, yamlCodec{})
	cr.encoders = append(cr.encoders, userEncoders...)
	cr.decoders = append(cr.decoders, jsonCodec{}, yamlCodec{})
	cr.decoders = append(cr.decoders, userDecoders...)
	return cr
}

// negotiate picks an encoder based on the Accept header value.
// Returns (JSON, true) for empty or */* accept values.
// Returns (nil, false) if an explicit Accept has no match.
func (cr *codecRegistry) negotiate(accept string) (Encoder, bool) {
	if accept == "" {
		return cr.encoders[0], true
	}

	type candidate struct {
		encoder Encoder
		quality float64
	}

	var best candidate
	best.quality = -1

	for part := range strings.SplitSeq(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}

		q := 1.0
		if qs, ok := params["q"]; ok {
			if parsed, err := strconv.ParseFloat(qs, 64); err == nil {
				q = parsed
			}
		}

		if q <= 0 || q <= best.quality {
			continue
		}

		if mediaType == "*/*" || mediaType == "application/*" {
			best = candidate{encoder: cr.encoders[0], quality: q}
			continue
		}

		for _, enc := range cr.encoders {
			if enc.ContentType() == mediaType || (mediaType == "text/yaml" && enc.ContentType() == "application/yaml") {
				best = candidate{encoder: enc, quality: q}
				break
			}
		}
	}

	if best.encoder == nil {
		return nil, false
	}
	return best.encoder, true
}

// decoderFor returns the decoder matching the given media type.
// Returns (JSON decoder, true) for an empty media type.
// Returns (nil, false) if the media type is present but unrecognized.
func (cr *codecRegistry) decoderFor(mediaType string) (Decoder, bool) {
	if mediaType == "" {
		return cr.decoders[0], true
	}
	if mediaType == "text/yaml" {
		mediaType = "application/yaml"
	}

	for _, dec := range cr.decoders {
		if dec.ContentType() == mediaType {
			return dec, true
		}
	}
	return nil, false
}
