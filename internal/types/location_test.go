package types

import "testing"

func TestLocationTouches(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Location
		slack int
		want  bool
	}{
		{
			name: "overlapping ranges same file",
			a:    NewLineLocation("Vault", "vault.sol", 10, 20),
			b:    NewLineLocation("Vault", "vault.sol", 15, 25),
			want: true,
		},
		{
			name:  "adjacent within slack",
			a:     NewLineLocation("Vault", "vault.sol", 10, 20),
			b:     NewLineLocation("Vault", "vault.sol", 22, 30),
			slack: 2,
			want:  true,
		},
		{
			name: "disjoint without slack",
			a:    NewLineLocation("Vault", "vault.sol", 10, 20),
			b:    NewLineLocation("Vault", "vault.sol", 22, 30),
			want: false,
		},
		{
			name: "different files never touch",
			a:    NewLineLocation("Vault", "vault.sol", 10, 20),
			b:    NewLineLocation("Vault", "token.sol", 10, 20),
			want: false,
		},
		{
			name: "contract fallback matches same scope",
			a:    NewContractLocation("Vault"),
			b:    NewLineLocation("Vault", "vault.sol", 10, 20),
			want: true,
		},
		{
			name: "contract fallback different scope",
			a:    NewContractLocation("Vault"),
			b:    NewContractLocation("Token"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Touches(tt.b, tt.slack); got != tt.want {
				t.Errorf("Touches() = %v, want %v", got, tt.want)
			}
			// Touches must be symmetric
			if got := tt.b.Touches(tt.a, tt.slack); got != tt.want {
				t.Errorf("Touches() not symmetric: reverse = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLineLocationNormalizesRange(t *testing.T) {
	loc := NewLineLocation("Vault", "vault.sol", 30, 10)
	if loc.StartLine != 10 || loc.EndLine != 30 {
		t.Errorf("range not normalized: got %d-%d", loc.StartLine, loc.EndLine)
	}
}

func TestLocationString(t *testing.T) {
	if got := NewContractLocation("Vault").String(); got != "Vault" {
		t.Errorf("contract location string = %q", got)
	}
	if got := NewLineLocation("Vault", "vault.sol", 5, 5).String(); got != "vault.sol:5" {
		t.Errorf("single line string = %q", got)
	}
	if got := NewLineLocation("Vault", "vault.sol", 5, 9).String(); got != "vault.sol:5-9" {
		t.Errorf("range string = %q", got)
	}
}
