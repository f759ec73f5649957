package semantic

import (
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
)

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("b2v47")
	b := PointID("b2v47")
	if a != b {
		t.Fatalf("same record id must map to the same point: %q vs %q", a, b)
	}
	if a == PointID("b2v48") {
		t.Fatal("distinct record ids must map to distinct points")
	}
	if len(a) != 36 {
		t.Fatalf("expected UUID string, got %q", a)
	}
}

func TestPointFromRecord(t *testing.T) {
	rec := VerseRecord{
		ID:        "b2v47",
		Embedding: []float32{0.1, 0.2},
		Text:      "embeddable text",
		Payload: map[string]any{
			"chapter_number": 2,
			"verse_title":    "Bhagavad Gita: Chapter 2, Verse 47",
		},
	}

	p := pointFromRecord(rec)
	if p.GetId().GetUuid() != PointID("b2v47") {
		t.Fatalf("wrong point id: %q", p.GetId().GetUuid())
	}
	if len(p.GetVectors().GetVector().GetData()) != 2 {
		t.Fatal("embedding not carried")
	}
	if p.Payload["record_id"].GetStringValue() != "b2v47" {
		t.Fatal("record_id payload key missing")
	}
	if p.Payload["content"].GetStringValue() != "embeddable text" {
		t.Fatal("content payload key missing")
	}
	if p.Payload["chapter_number"].GetIntegerValue() != 2 {
		t.Fatal("chapter_number payload lost")
	}
}

func TestResultFromPayload(t *testing.T) {
	payload := map[string]*pb.Value{
		"record_id":      {Kind: &pb.Value_StringValue{StringValue: "b2v47"}},
		"content":        {Kind: &pb.Value_StringValue{StringValue: "text"}},
		"chapter_number": {Kind: &pb.Value_IntegerValue{IntegerValue: 2}},
		"verse_number":   {Kind: &pb.Value_IntegerValue{IntegerValue: 47}},
		"verse_title":    {Kind: &pb.Value_StringValue{StringValue: "Bhagavad Gita: Chapter 2, Verse 47"}},
		"source":         {Kind: &pb.Value_StringValue{StringValue: "https://example.org"}},
		"_global_index":  {Kind: &pb.Value_IntegerValue{IntegerValue: 70}},
	}

	sr := resultFromPayload(0.91, payload)
	if sr.Score != 0.91 {
		t.Fatalf("score lost: %v", sr.Score)
	}
	if sr.ID != "b2v47" || sr.Content != "text" {
		t.Fatalf("identity fields wrong: %+v", sr)
	}
	if sr.ChapterNumber != 2 || sr.VerseNumber != 47 {
		t.Fatalf("numeric fields wrong: %+v", sr)
	}
	if sr.VerseTitle == "" || sr.Source == "" {
		t.Fatalf("string fields wrong: %+v", sr)
	}
	if sr.Meta["_global_index"] != "70" {
		t.Fatalf("unrecognized keys should land in Meta, got %v", sr.Meta)
	}
}

func TestToValueAndValueString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"s", "s"},
		{7, "7"},
		{int64(8), "8"},
		{1.5, "1.5"},
		{true, "true"},
	}
	for _, c := range cases {
		if got := valueString(toValue(c.in)); got != c.want {
			t.Errorf("valueString(toValue(%v)) = %q, want %q", c.in, got, c.want)
		}
	}

	// Unknown types degrade to their string form.
	v := toValue([]int{1, 2})
	if v.GetStringValue() == "" {
		t.Fatal("fallback should stringify unknown types")
	}
}
