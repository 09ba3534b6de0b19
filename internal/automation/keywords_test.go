package automation

import "testing"

func TestExcludedKeyword(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     bool
		wantKW   string
	}{
		{"exact", "poste en banc de test", []string{"banc"}, true, "banc"},
		{"upper text", "Mission BANCAIRE", []string{"banc"}, true, "banc"},
		{"upper keyword", "secteur assurance vie", []string{"ASSURANCE"}, true, "ASSURANCE"},
		{"partial word", "Banque de France", []string{"banc"}, false, ""},
		{"partial word prefix", "Bancassurance", []string{"banc"}, true, "banc"},
		{"no keywords", "anything", nil, false, ""},
		{"blank keyword", "anything", []string{"  "}, false, ""},
		{"second keyword", "courtier en assurance", []string{"banc", "assurance"}, true, "assurance"},
		{"accented", "Société Générale", []string{"société"}, true, "société"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kw, got := ExcludedKeyword(tt.text, tt.keywords)
			if got != tt.want || kw != tt.wantKW {
				t.Errorf("ExcludedKeyword(%q, %v) = (%q, %v), want (%q, %v)", tt.text, tt.keywords, kw, got, tt.wantKW, tt.want)
			}
		})
	}
}
