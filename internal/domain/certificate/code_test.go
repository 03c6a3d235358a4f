package certificate_test

import (
	"regexp"
	"testing"

	"github.com/Builder-Lawyers/certify-backend/internal/domain/certificate"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{5}[A-Z]{2}$`)

func TestGenerateCode_Matches_Format(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := certificate.GenerateCode()
		require.Len(t, code, certificate.CodeLength)
		require.Regexp(t, codePattern, code)
	}
}

func TestGenerateCode_Collisions_Are_Negligible(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	collisions := 0
	for i := 0; i < 10000; i++ {
		code := certificate.GenerateCode()
		if _, ok := seen[code]; ok {
			collisions++
		}
		seen[code] = struct{}{}
	}
	require.LessOrEqual(t, collisions, 2)
}
