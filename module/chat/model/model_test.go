package model

import "testing"

func TestDirectKeyIsOrderInsensitive(t *testing.T) {
	if DirectKey("alice", "bob") != DirectKey("bob", "alice") {
		t.Fatalf("direct key must be canonical regardless of argument order")
	}
	if DirectKey("alice", "bob") != "alice:bob" {
		t.Fatalf("direct key = %q", DirectKey("alice", "bob"))
	}
	if DirectKey("alice", "bob") == DirectKey("alice", "carol") {
		t.Fatalf("different pairs must produce different keys")
	}
}

func TestValidReaction(t *testing.T) {
	for _, k := range []string{ReactionLike, ReactionLove, ReactionLaugh, ReactionWow, ReactionSad, ReactionAngry} {
		if !ValidReaction(k) {
			t.Fatalf("%q should be a valid kind", k)
		}
	}
	for _, k := range []string{"", "LIKE", "thumbsup", "cowboy"} {
		if ValidReaction(k) {
			t.Fatalf("%q should be rejected", k)
		}
	}
}
