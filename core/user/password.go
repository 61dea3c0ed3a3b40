package user

import (
	"crypto/rand"
	"math/big"
)

const (
	tempPasswordLen = 14

	lowerChars   = "abcdefghijkmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digitChars   = "23456789"
	specialChars = "!@#$%&*?-_+="
)

// GenerateTempPassword returns a random password satisfying the password policy.
func GenerateTempPassword() (string, error) {
	all := lowerChars + upperChars + digitChars + specialChars
	pwd := make([]byte, 0, tempPasswordLen)

	// one of each class first, the rest from the full alphabet
	for _, set := range []string{lowerChars, upperChars, digitChars, specialChars} {
		c, err := randChar(set)
		if err != nil {
			return "", err
		}
		pwd = append(pwd, c)
	}
	for len(pwd) < tempPasswordLen {
		c, err := randChar(all)
		if err != nil {
			return "", err
		}
		pwd = append(pwd, c)
	}

	// Fisher-Yates
	for i := len(pwd) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		pwd[i], pwd[j] = pwd[j], pwd[i]
	}
	return string(pwd), nil
}

func randChar(set string) (byte, error) {
	i, err := randInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
