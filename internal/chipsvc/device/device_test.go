package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	iPhoneUA      = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	iPadUA        = "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"
	pixelUA       = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36"
	galaxyTabUA   = "Mozilla/5.0 (Linux; Android 13; SM-T870) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	androidTabUA  = "Mozilla/5.0 (Linux; Android 12; Lenovo TB-X606F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0 Safari/537.36"
	kindleSilkUA  = "Mozilla/5.0 (Linux; Android 9; KFTRWI) AppleWebKit/537.36 (KHTML, like Gecko) Silk/120.3.1 like Chrome/120.0 Mobile Safari/537.36"
	macUA         = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
	windowsUA     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	windowsMobile = "Mozilla/5.0 (Windows Phone 10.0; Android 6.0.1; Microsoft; Lumia 950) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/52.0 Mobile Safari/537.36 Edge/15.15063"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want Class
	}{
		{"empty", "", Desktop},
		{"iphone", iPhoneUA, Mobile},
		{"android phone", pixelUA, Mobile},
		{"windows phone", windowsMobile, Mobile},
		{"ipad", iPadUA, Tablet},
		{"galaxy tab", galaxyTabUA, Tablet},
		{"android without mobile token", androidTabUA, Tablet},
		{"kindle silk", kindleSilkUA, Tablet},
		{"mac", macUA, Desktop},
		{"windows", windowsUA, Desktop},
		{"curl", "curl/8.4.0", Desktop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ua))
		})
	}
}

// Tablet agents that also carry mobile signatures must still land on Tablet.
func TestClassifyTabletCheckedBeforeMobile(t *testing.T) {
	for _, ua := range []string{iPadUA, kindleSilkUA} {
		assert.True(t, mobileRe.MatchString(ua), "fixture should also match mobile: %s", ua)
		assert.Equal(t, Tablet, Classify(ua))
	}
}
