package lambda

import "testing"

func TestFromJSONObject(t *testing.T) {
	payload := `{"name":"Jo","age":42,"ratio":0.5,"ok":true,"none":null,"tags":["a","b"],"addr":{"city":"Oslo"}}`
	root, err := FromJSON([]byte(payload))
	if err != nil {
		t.Fatalf("FromJSON() error: %v", err)
	}
	if v := root.Child("name").Value; v != "Jo" {
		t.Errorf("name = %v", v)
	}
	if v := root.Child("age").Value; v != int64(42) {
		t.Errorf("age = %v (%T), want int64", v, v)
	}
	if v := root.Child("ratio").Value; v != 0.5 {
		t.Errorf("ratio = %v (%T)", v, v)
	}
	if v := root.Child("ok").Value; v != true {
		t.Errorf("ok = %v", v)
	}
	if v := root.Child("none").Value; v != nil {
		t.Errorf("none = %v", v)
	}
	tags := root.Child("tags")
	if tags.CountChildren() != 2 || tags.FirstChild().Name != "" || tags.FirstChild().Value != "a" {
		t.Errorf("tags parsed wrong: %v", tags.Children())
	}
	if v := root.Child("addr").Child("city").Value; v != "Oslo" {
		t.Errorf("addr.city = %v", v)
	}
}

func TestFromJSONMalformed(t *testing.T) {
	if _, err := FromJSON([]byte(`{"x":`)); err == nil {
		t.Errorf("expected error for malformed JSON")
	}
}

func TestToJSONPreservesOrder(t *testing.T) {
	root := New("")
	root.Append(NewWith("zebra", "first"))
	root.Append(NewWith("alpha", int64(2)))
	nested := New("nested")
	nested.Append(NewWith("flag", true))
	root.Append(nested)

	out, err := ToJSON(root)
	if err != nil {
		t.Fatalf("ToJSON() error: %v", err)
	}
	want := `{"zebra":"first","alpha":2,"nested":{"flag":true}}`
	if out != want {
		t.Errorf("ToJSON() = %s, want %s", out, want)
	}
}

func TestToJSONArray(t *testing.T) {
	root := New("items")
	for _, v := range []any{int64(1), "two", true} {
		root.Append(NewWith("", v))
	}
	out, err := ToJSON(root)
	if err != nil {
		t.Fatalf("ToJSON() error: %v", err)
	}
	if out != `[1,"two",true]` {
		t.Errorf("ToJSON() = %s", out)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	in := `{"a":{"b":[1,2,3]},"c":"x"}`
	tree, err := FromJSON([]byte(in))
	if err != nil {
		t.Fatalf("FromJSON() error: %v", err)
	}
	out, err := ToJSON(tree)
	if err != nil {
		t.Fatalf("ToJSON() error: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %s, want %s", out, in)
	}
}
