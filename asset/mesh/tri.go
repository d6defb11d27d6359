package mesh

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/latr-engine/latr/asset"
	"github.com/latr-engine/latr/types"
	"github.com/pkg/errors"
)

// The number of floats that describe a single triangle in a .tri file.
const floatsPerTriangle = 9

// ErrFloatCount is returned when the number of floats in a .tri stream is
// not a multiple of 9.
var ErrFloatCount = errors.New("mesh: tri data float count is not a multiple of 9")

// A raw triangle as read from a .tri file: the x, y, z coordinates of its
// 3 corners.
type RawTriangle [floatsPerTriangle]float32

// Get the position of corner i.
func (t *RawTriangle) Corner(i int) types.Vec3 {
	return types.Vec3{t[i*3], t[i*3+1], t[i*3+2]}
}

// A ParseError is returned when a .tri stream contains a token that is not a
// valid floating point number.
type ParseError struct {
	// The resource path or "" if parsing a plain stream.
	Path string

	// The offending token and its index in the float stream.
	Token string
	Index int

	Err error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("mesh: invalid float %q at position %d: %v", e.Token, e.Index, e.Err)
	}
	return fmt.Sprintf("mesh: %s: invalid float %q at position %d: %v", e.Path, e.Token, e.Index, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse a stream of whitespace separated floats into a triangle soup. Every
// 9 consecutive floats describe a triangle. Malformed floats yield a
// *ParseError and a float count that is not a multiple of 9 yields
// ErrFloatCount; the stream is never truncated or padded.
func Parse(r io.Reader) ([]RawTriangle, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(bufio.ScanWords)

	var floats []float32
	for scanner.Scan() {
		token := scanner.Text()
		val, err := strconv.ParseFloat(token, 32)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
				// Out of range values saturate to +-Inf like any other
				// f32 parser would do.
				floats = append(floats, float32(val))
				continue
			}
			return nil, &ParseError{Token: token, Index: len(floats), Err: err}
		}
		floats = append(floats, float32(val))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "mesh: could not read tri data")
	}

	if len(floats)%floatsPerTriangle != 0 {
		return nil, ErrFloatCount
	}

	tris := make([]RawTriangle, len(floats)/floatsPerTriangle)
	for i := range tris {
		copy(tris[i][:], floats[i*floatsPerTriangle:])
	}
	return tris, nil
}

// Read a triangle soup from a resource.
func ReadTri(res *asset.Resource) ([]RawTriangle, error) {
	tris, err := Parse(res)
	if err != nil {
		if parseErr, ok := err.(*ParseError); ok {
			parseErr.Path = res.Path()
			return nil, parseErr
		}
		return nil, errors.Wrapf(err, "%s", res.Path())
	}
	return tris, nil
}

// Open and parse a .tri file. The path may also be a http/https URL.
func ReadTriFile(ctx context.Context, path string) ([]RawTriangle, error) {
	res, err := asset.NewResource(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return ReadTri(res)
}
