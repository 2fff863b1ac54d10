package service

import (
	"math/rand/v2"

	"wingo/models"
)

type globalRandom struct{}

// NewRandomSource returns a goroutine-safe source backed by math/rand/v2
func NewRandomSource() models.RandomSource {
	return globalRandom{}
}

func (globalRandom) Intn(n int) int {
	return rand.IntN(n)
}
