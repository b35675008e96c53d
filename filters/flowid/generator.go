package flowid

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid"
)

const (
	flowIDAlphabet  = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ-+"
	alphabetBitMask = 63

	// MaxLength is the maximum length of flow ids created by the
	// standard generator.
	MaxLength = 64

	// MinLength is the minimum length of flow ids created by the
	// standard generator.
	MinLength = 8

	uuidLength = 36

	// DefaultLength is the length of the flow ids created by the
	// standard generator, when not specified otherwise.
	DefaultLength = 16
)

var (
	ErrInvalidLen = fmt.Errorf("invalid length, must be between %d and %d", MinLength, MaxLength)

	errEmptyEntropy     = errors.New("missing entropy source")
	standardFlowIDRegex = regexp.MustCompile(`^[0-9a-zA-Z+-]+$`)
	ulidFlowIDRegex     = regexp.MustCompile(`^[0-7][0-9A-HJKMNP-TV-Z]{25}$`)
)

// Generator creates flow ids.
type Generator interface {
	// Generate returns a new flow id, or an error in case of failure.
	Generate() (string, error)

	// IsValid checks if the given flow id follows the format of the
	// generator.
	IsValid(string) bool
}

type standardGenerator struct {
	length int
}

type ulidGenerator struct {
	mx      sync.Mutex
	entropy io.Reader
}

// NewStandardGenerator creates a generator of flow ids with length l.
// The alphabet is limited to 64 elements and requires a random 6 bit value
// to index any of them. A single call to rand.Int63 is used and its bits
// are mapped up to 10 chunks of 6 bits each. It is safe for concurrent
// use.
func NewStandardGenerator(l int) (Generator, error) {
	if l < MinLength || l > MaxLength {
		return nil, ErrInvalidLen
	}

	return &standardGenerator{length: l}, nil
}

func (g *standardGenerator) Generate() (string, error) {
	u := make([]byte, g.length)
	for i := 0; i < g.length; i += 10 {
		b := rand.Int63() // #nosec
		for e := 0; e < 10 && i+e < g.length; e++ {
			c := byte(b>>uint(6*e)) & alphabetBitMask
			u[i+e] = flowIDAlphabet[c]
		}
	}

	return string(u), nil
}

func (g *standardGenerator) IsValid(flowID string) bool {
	return len(flowID) >= MinLength && len(flowID) <= MaxLength && standardFlowIDRegex.MatchString(flowID)
}

// NewULIDGenerator creates a generator of ULID flow ids. It is safe for
// concurrent use.
func NewULIDGenerator() Generator {
	g, _ := NewULIDGeneratorWithEntropy(rand.New(rand.NewSource(time.Now().UTC().UnixNano()))) // #nosec
	return g
}

// NewULIDGeneratorWithEntropy creates a generator of ULID flow ids
// reading randomness from r. Reads from r are serialized.
func NewULIDGeneratorWithEntropy(r io.Reader) (Generator, error) {
	if r == nil {
		return nil, errEmptyEntropy
	}

	return &ulidGenerator{entropy: r}, nil
}

func (g *ulidGenerator) Generate() (string, error) {
	g.mx.Lock()
	id, err := ulid.New(ulid.Now(), g.entropy)
	g.mx.Unlock()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (g *ulidGenerator) IsValid(flowID string) bool {
	if !ulidFlowIDRegex.MatchString(flowID) {
		return false
	}

	_, err := ulid.Parse(flowID)
	return err == nil
}

type uuidGenerator struct{}

// NewUUIDGenerator creates a generator of random, version 4 UUID flow ids
// in their canonical, 36 character form.
func NewUUIDGenerator() Generator { return uuidGenerator{} }

func (uuidGenerator) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (uuidGenerator) IsValid(flowID string) bool {
	if len(flowID) != uuidLength {
		return false
	}

	_, err := uuid.Parse(flowID)
	return err == nil
}
