package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateScope(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		want      string
	}{
		{
			name:      "empty falls back to default",
			requested: "",
			want:      DefaultScope,
		},
		{
			name:      "whitespace only falls back to default",
			requested: "   \t  ",
			want:      DefaultScope,
		},
		{
			name:      "single allowed scope",
			requested: "product.compact",
			want:      "product.compact",
		},
		{
			name:      "unknown scopes dropped",
			requested: "product.compact admin:god cart.basic:write",
			want:      "product.compact cart.basic:write",
		},
		{
			name:      "all unknown falls back to default",
			requested: "admin:god openid email",
			want:      DefaultScope,
		},
		{
			name:      "order preserved",
			requested: "profile.compact product.compact",
			want:      "profile.compact product.compact",
		},
		{
			name:      "extra whitespace collapsed",
			requested: "  coupon.basic   profile.compact ",
			want:      "coupon.basic profile.compact",
		},
		{
			name:      "case sensitive",
			requested: "Product.Compact",
			want:      DefaultScope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateScope(tt.requested))
		})
	}
}

func TestParseSource(t *testing.T) {
	assert.Equal(t, SourceCLI, ParseSource("cli"))
	assert.Equal(t, SourceAgent, ParseSource("agent"))
	assert.Equal(t, SourceUnknown, ParseSource(""))
	assert.Equal(t, SourceUnknown, ParseSource("browser"))
}
