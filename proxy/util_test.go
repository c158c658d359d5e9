package proxy

import (
	"testing"
)

func AssertEquals(t *testing.T, expected interface{}, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Errorf("expected: %v, actual: %v", expected, actual)
	}
}

func TestExtractDomain(t *testing.T) {
	// simple hostname
	AssertEquals(t, "www.example.com", ExtractDomain("www.example.com"))
	// with port
	AssertEquals(t, "www.example.com", ExtractDomain("www.example.com:8080"))
	// mixed case
	AssertEquals(t, "www.example.com", ExtractDomain("WWW.Example.COM"))
	// surrounding whitespace
	AssertEquals(t, "www.example.com", ExtractDomain(" www.example.com "))
}
