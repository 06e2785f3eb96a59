// Package env reads service configuration from environment variables.
package env

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Must returns the value of k or exits when it is unset.
func Must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env: %s", k)
	}
	return v
}

func String(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}

func Int(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int env %s: %v", k, err)
	}
	return i
}

func Float(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("invalid float env %s: %v", k, err)
	}
	return f
}

func Bool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return strings.ToLower(v) == "true"
}

// Duration accepts Go duration syntax ("90s", "2h").
func Duration(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}

	dur, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration env %s: %v", k, err)
	}
	return dur
}

// Slice splits a comma separated value and drops empty items.
func Slice(k string, d []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}

	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Addr turns a bare port ("8001") into a listen address (":8001").
func Addr(port string) string {
	if port != "" && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
