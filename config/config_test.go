package config

import "testing"

func TestDefaultIsValid(t *testing.T) {
	setts := Default()
	Validate(setts) // must not panic

	if setts.Int64("sysalloc.minregion") != MinRegion {
		t.Fatalf("expected default minregion %v, got %v", MinRegion, setts.Int64("sysalloc.minregion"))
	}
}

func TestValidatePanicsOnInvertedBounds(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	setts := Default()
	setts["sysalloc.minregion"] = MaxMmapAlloc + 1
	Validate(setts)
}

func TestMixinOverridesDefault(t *testing.T) {
	setts := Default().Mixin(map[string]interface{}{
		"threadcache.maxoverages": int64(5),
	})
	if setts.Int64("threadcache.maxoverages") != 5 {
		t.Fatalf("expected override to take effect")
	}
}
