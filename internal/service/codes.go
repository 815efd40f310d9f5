package service

import (
	"fmt"

	"github.com/speps/go-hashids"
)

const (
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	usernameAlphabet = "abcdefghijkmnpqrstuvwxyz23456789"
	joinCodeLength   = 6
	usernameLength   = 6
	usernamePrefix   = "eco"
)

// CodeGenerator turns numeric ids into short stable codes and back.
type CodeGenerator struct {
	codec  *hashids.HashID
	prefix string
}

func newCodeGenerator(salt, alphabet, prefix string, minLength int) (*CodeGenerator, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.Alphabet = alphabet
	hd.MinLength = minLength
	codec, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("configure code generator: %w", err)
	}
	return &CodeGenerator{codec: codec, prefix: prefix}, nil
}

// NewJoinCodeGenerator builds the generator for class join codes.
func NewJoinCodeGenerator(salt string) (*CodeGenerator, error) {
	return newCodeGenerator(salt, joinCodeAlphabet, "", joinCodeLength)
}

// NewUsernameGenerator builds the generator for student usernames. It uses a
// different salt than join codes so the two never collide visually.
func NewUsernameGenerator(salt string) (*CodeGenerator, error) {
	return newCodeGenerator(salt+" usernames", usernameAlphabet, usernamePrefix, usernameLength)
}

// Encode returns the code for id.
func (g *CodeGenerator) Encode(id uint) (string, error) {
	code, err := g.codec.EncodeInt64([]int64{int64(id)})
	if err != nil {
		return "", err
	}
	return g.prefix + code, nil
}

// Decode returns the id a code was generated from.
func (g *CodeGenerator) Decode(code string) (uint, error) {
	if len(code) <= len(g.prefix) || code[:len(g.prefix)] != g.prefix {
		return 0, ErrJoinCodeInvalid
	}
	values, err := g.codec.DecodeInt64WithError(code[len(g.prefix):])
	if err != nil || len(values) != 1 || values[0] <= 0 {
		return 0, ErrJoinCodeInvalid
	}
	return uint(values[0]), nil
}
