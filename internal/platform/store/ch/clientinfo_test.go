package ch

import "testing"

func TestBuildClientInfo(t *testing.T) {
	ci := BuildClientInfo("", "movies")
	if len(ci.Products) < 2 {
		t.Fatalf("products = %d", len(ci.Products))
	}
	if ci.Products[0].Name != "helioserve" || ci.Products[0].Version != "movies" {
		t.Fatalf("first product = %+v", ci.Products[0])
	}
	if ci.Products[1].Name != "go" || ci.Products[1].Version == "" {
		t.Fatalf("go product = %+v", ci.Products[1])
	}
}
