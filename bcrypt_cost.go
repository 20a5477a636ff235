//go:build !race

package account

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// bcrypt.DefaultCost is 10 rounds
	return bcrypt.DefaultCost
}
