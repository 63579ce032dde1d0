package utils

import (
	"crypto/rand"
	"fmt"
	"time"
)

// codeAlphabet excludes 0/O, 1/I/L and vowels so codes survive being read
// over a counter or typed from a printed slip.
const codeAlphabet = "23456789BCDFGHJKMNPQRSTVWXZ"

const codeSuffixLen = 6

// NewVoucherCode returns a URL-safe, human-transcribable voucher code:
// a date prefix plus a random suffix, e.g. LD-20260901-K7MX2B. Uniqueness
// is enforced by the database; callers retry on collision.
func NewVoucherCode() string {
	buf := make([]byte, codeSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; fall back
		// to the nanosecond clock rather than returning an error here.
		return fmt.Sprintf("LD-%s-%d", time.Now().Format("20060102"), time.Now().UnixNano()%1000000)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return fmt.Sprintf("LD-%s-%s", time.Now().Format("20060102"), string(buf))
}
