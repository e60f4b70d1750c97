package deserialize

import "testing"

func TestUTF8Deserialize(t *testing.T) {
	values, ok := UTF8{}.Deserialize("t", 0, 0, []byte("MyKey"), []byte("MyValue"))
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(values) != 2 || values[0] != "MyKey" || values[1] != "MyValue" {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestRawDeserialize(t *testing.T) {
	values, ok := Raw{}.Deserialize("t", 0, 0, []byte{1, 2}, []byte{3, 4})
	if !ok {
		t.Fatal("expected ok=true")
	}
	key, kok := values[0].([]byte)
	val, vok := values[1].([]byte)
	if !kok || !vok || len(key) != 2 || len(val) != 2 {
		t.Fatalf("unexpected values: %v", values)
	}
}
