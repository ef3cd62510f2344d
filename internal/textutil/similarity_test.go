package textutil

import (
	"math"
	"testing"
)

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
		want float64
	}{
		{"both nil", nil, nil, 0},
		{"a nil", nil, NewFingerprint("drame brucewillis"), 0},
		{"b nil", NewFingerprint("drame brucewillis"), nil, 0},
		{"zero norm", &Fingerprint{tokens: map[string]float64{}}, NewFingerprint("drame"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); got != tt.want {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	text := "heist,bank brucewillis,samuell.jackson johnmctiernan action,thriller"
	got := CosineSimilarity(NewFingerprint(text), NewFingerprint(text))
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("CosineSimilarity(identical) = %v, want 1.0", got)
	}
}

func TestCosineSimilarityPartialOverlapIsSymmetric(t *testing.T) {
	a := NewFingerprint("space,alien sigourneyweaver ridleyscott sciencefiction,horreur")
	b := NewFingerprint("space,robot harrisonford ridleyscott sciencefiction")
	c := NewFingerprint("romance,paris audreytautou jeanpierrejeunet comedie")

	ab := CosineSimilarity(a, b)
	if ab <= 0 || ab >= 1 {
		t.Fatalf("CosineSimilarity(partial) = %v, want between 0 and 1", ab)
	}
	if ba := CosineSimilarity(b, a); math.Abs(ab-ba) > 1e-12 {
		t.Fatalf("CosineSimilarity not symmetric: (%v, %v)", ab, ba)
	}
	if ac := CosineSimilarity(a, c); ac != 0 {
		t.Fatalf("CosineSimilarity(disjoint) = %v, want 0", ac)
	}
}

func TestNewFingerprintNormCalculation(t *testing.T) {
	// drame:2, crime:1 -> sqrt(5)
	fp := NewFingerprint("drame,drame crime")
	if fp == nil {
		t.Fatal("expected fingerprint")
	}
	if math.Abs(fp.norm-math.Sqrt(5)) > 0.0001 {
		t.Errorf("norm = %v, want %v", fp.norm, math.Sqrt(5))
	}
	if fp.TokenCount() != 2 {
		t.Errorf("TokenCount = %d, want 2", fp.TokenCount())
	}
	if NewFingerprint(" , ") != nil {
		t.Error("expected nil fingerprint for separator-only text")
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		minLen int
		want   []string
	}{
		{"feature string", "heist,bank brucewillis", 2, []string{"heist", "bank", "brucewillis"}},
		{"drops short", "a to the fox", 3, []string{"the", "fox"}},
		{"punctuation", "Samuel L. Jackson!", 1, []string{"samuel", "l", "jackson"}},
		{"empty", "", 2, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input, tt.minLen)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCorpusIDFDownweightsCommonTerms(t *testing.T) {
	docs := []*Fingerprint{
		NewFingerprint("drame brucewillis"),
		NewFingerprint("drame audreytautou"),
		NewFingerprint("drame brucewillis"),
	}
	corpus := NewCorpus()
	for _, fp := range docs {
		corpus.Add(fp)
	}
	idf := corpus.IDF()
	if idf["drame"] >= idf["audreytautou"] {
		t.Fatalf("expected common term to weigh less: %v", idf)
	}
	weighted := docs[0].WithIDF(idf)
	if weighted.TokenCount() != 2 {
		t.Fatalf("expected weighted fingerprint to keep tokens, got %d", weighted.TokenCount())
	}
	if NewCorpus().IDF() != nil {
		t.Fatal("expected nil IDF for empty corpus")
	}
}
