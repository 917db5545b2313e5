package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	chatmodel "SNProject/module/chat/model"
	usermodel "SNProject/module/user/model"
	"SNProject/service/chat"
	"SNProject/tools/errs"
)

// ===== fakes =====

type fakeConvs struct {
	members map[string][]string // convID -> userIDs
}

func (f *fakeConvs) IsParticipant(_ context.Context, convID, userID string) (bool, error) {
	for _, u := range f.members[convID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeMsgs struct {
	mu        sync.Mutex
	seq       int
	byID      map[string]*chatmodel.Message
	reactions map[string]map[string]string // msgID -> userID -> kind
	deletions map[string]map[string]bool   // msgID -> userID -> forEveryone
	saveErr   error
}

func newFakeMsgs() *fakeMsgs {
	return &fakeMsgs{
		byID:      map[string]*chatmodel.Message{},
		reactions: map[string]map[string]string{},
		deletions: map[string]map[string]bool{},
	}
}

func (f *fakeMsgs) SaveMessage(_ context.Context, convID, sendID, content string) (*chatmodel.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.seq++
	m := &chatmodel.Message{
		MsgID:          fmt.Sprintf("m%d", f.seq),
		ConversationID: convID,
		SendID:         sendID,
		Content:        content,
		SendTimeMS:     int64(f.seq),
	}
	f.byID[m.MsgID] = m
	return m, nil
}

func (f *fakeMsgs) GetMessage(_ context.Context, msgID string) (*chatmodel.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[msgID]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMsgs) UpsertReaction(_ context.Context, msgID, userID, kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reactions[msgID] == nil {
		f.reactions[msgID] = map[string]string{}
	}
	f.reactions[msgID][userID] = kind
	return nil
}

func (f *fakeMsgs) RemoveReaction(_ context.Context, msgID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.reactions[msgID], userID)
	return nil
}

func (f *fakeMsgs) ListReactions(_ context.Context, msgID string) ([]chatmodel.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []chatmodel.Reaction{}
	for u, k := range f.reactions[msgID] {
		out = append(out, chatmodel.Reaction{MsgID: msgID, UserID: u, Reaction: k})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeMsgs) UpsertDeletion(_ context.Context, msgID, userID string, forEveryone bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deletions[msgID] == nil {
		f.deletions[msgID] = map[string]bool{}
	}
	f.deletions[msgID][userID] = forEveryone
	return nil
}

type fakeProfiles struct {
	byID map[string]usermodel.PublicProfile
}

func (f *fakeProfiles) PublicProfile(_ context.Context, userID string) (*usermodel.PublicProfile, error) {
	p, ok := f.byID[userID]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}
	return &p, nil
}

// ===== harness =====

type env struct {
	srv   *chat.Server
	convs *fakeConvs
	msgs  *fakeMsgs
}

func newEnv(t *testing.T, members map[string][]string) *env {
	t.Helper()
	convs := &fakeConvs{members: members}
	msgs := newFakeMsgs()
	profiles := &fakeProfiles{byID: map[string]usermodel.PublicProfile{
		"alice": {UserID: "alice", Nickname: "Alice"},
		"bob":   {UserID: "bob", Nickname: "Bob"},
		"mallory": {UserID: "mallory", Nickname: "Mallory"},
	}}
	srv := chat.NewServer(convs, msgs, profiles, chat.Options{})
	srv.Disp().Register(NewJoinHandler(srv))
	srv.Disp().Register(NewSendHandler(srv))
	srv.Disp().Register(NewReactHandler(srv))
	srv.Disp().Register(NewDeleteHandler(srv))
	t.Cleanup(srv.Close)
	return &env{srv: srv, convs: convs, msgs: msgs}
}

func (e *env) connect(t *testing.T, userID string) *chat.Client {
	t.Helper()
	c := chat.NewClient("conn-"+userID, userID, nil, 16)
	e.srv.Registry().Add(c)
	return c
}

func (e *env) dispatch(t *testing.T, c *chat.Client, raw string) {
	t.Helper()
	f, err := chat.ParseFrameJSON([]byte(raw))
	if err != nil {
		t.Fatalf("parse frame: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.srv.Disp().Dispatch(ctx, c, f); err != nil {
		t.Fatalf("dispatch %s: %v", f.Type, err)
	}
}

type envelope struct {
	Type    chat.FrameType  `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func recv(t *testing.T, c *chat.Client) envelope {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		if !ok {
			t.Fatalf("send channel closed")
		}
		var out envelope
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("bad outbound frame %q: %v", raw, err)
		}
		return out
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a frame on conn=%s", c.ConnID)
		return envelope{}
	}
}

func expectSilence(t *testing.T, c *chat.Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("unexpected frame on conn=%s: %s", c.ConnID, raw)
	case <-time.After(150 * time.Millisecond):
	}
}

// ===== join =====

func TestJoinRequiresMembership(t *testing.T) {
	e := newEnv(t, map[string][]string{"conv-1": {"alice", "bob"}})
	alice := e.connect(t, "alice")
	mallory := e.connect(t, "mallory")

	e.dispatch(t, alice, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)
	e.dispatch(t, mallory, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)

	if !e.srv.Rooms().Contains("conv-1", alice) {
		t.Fatalf("participant should be in the room after join")
	}
	if e.srv.Rooms().Contains("conv-1", mallory) {
		t.Fatalf("non-participant join must be ignored")
	}
	// 通道保持安静：不回错误帧
	expectSilence(t, mallory)
}

// ===== send =====

func TestSendFansOutToJoinedMembers(t *testing.T) {
	e := newEnv(t, map[string][]string{
		"conv-1": {"alice", "bob"},
		"conv-2": {"mallory"},
	})
	alice := e.connect(t, "alice")
	bob := e.connect(t, "bob")
	mallory := e.connect(t, "mallory")

	e.dispatch(t, alice, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)
	e.dispatch(t, bob, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)
	e.dispatch(t, mallory, `{"type":"join_conversation","payload":{"conversationId":"conv-2"}}`)

	e.dispatch(t, alice, `{"type":"send_message","payload":{"conversationId":"conv-1","content":"hello bob"}}`)

	for _, c := range []*chat.Client{alice, bob} {
		fr := recv(t, c)
		if fr.Type != chat.FrameNewMessage {
			t.Fatalf("conn=%s got %s, want new_message", c.ConnID, fr.Type)
		}
		var p chat.NewMessagePayload
		if err := json.Unmarshal(fr.Payload, &p); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if p.Message.Content != "hello bob" || p.Message.SendID != "alice" {
			t.Fatalf("message = %+v", p.Message)
		}
		if p.Sender.Nickname != "Alice" {
			t.Fatalf("sender profile not hydrated: %+v", p.Sender)
		}
		if p.Message.MsgID == "" || p.Message.SendTimeMS == 0 {
			t.Fatalf("server must assign id and timestamp: %+v", p.Message)
		}
	}
	expectSilence(t, mallory)

	if len(e.msgs.byID) != 1 {
		t.Fatalf("expected one persisted message, got %d", len(e.msgs.byID))
	}
}

func TestSendFromNonParticipantIsDropped(t *testing.T) {
	e := newEnv(t, map[string][]string{"conv-1": {"alice", "bob"}})
	alice := e.connect(t, "alice")
	mallory := e.connect(t, "mallory")
	e.dispatch(t, alice, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)

	e.dispatch(t, mallory, `{"type":"send_message","payload":{"conversationId":"conv-1","content":"gatecrash"}}`)

	expectSilence(t, alice)
	expectSilence(t, mallory)
	if len(e.msgs.byID) != 0 {
		t.Fatalf("non-participant message must not be persisted")
	}
}

func TestSendEmptyContentIsDropped(t *testing.T) {
	e := newEnv(t, map[string][]string{"conv-1": {"alice"}})
	alice := e.connect(t, "alice")
	e.dispatch(t, alice, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)

	e.dispatch(t, alice, `{"type":"send_message","payload":{"conversationId":"conv-1","content":"   "}}`)

	expectSilence(t, alice)
	if len(e.msgs.byID) != 0 {
		t.Fatalf("blank message must not be persisted")
	}
}

func TestSendPersistFailureIsSilent(t *testing.T) {
	e := newEnv(t, map[string][]string{"conv-1": {"alice", "bob"}})
	alice := e.connect(t, "alice")
	bob := e.connect(t, "bob")
	e.dispatch(t, alice, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)
	e.dispatch(t, bob, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)

	e.msgs.saveErr = errs.ErrPersistence

	e.dispatch(t, alice, `{"type":"send_message","payload":{"conversationId":"conv-1","content":"lost"}}`)

	// 落库失败：不广播、也不向发送者回错误帧
	expectSilence(t, alice)
	expectSilence(t, bob)
}

// ===== reactions =====

func TestReactionOverwriteBroadcastsFullSet(t *testing.T) {
	e := newEnv(t, map[string][]string{"conv-1": {"alice", "bob"}})
	alice := e.connect(t, "alice")
	bob := e.connect(t, "bob")
	e.dispatch(t, alice, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)
	e.dispatch(t, bob, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)

	e.dispatch(t, alice, `{"type":"send_message","payload":{"conversationId":"conv-1","content":"react to me"}}`)
	msg := recvNewMessage(t, alice)
	_ = recv(t, bob)

	e.dispatch(t, bob, fmt.Sprintf(`{"type":"react_message","payload":{"messageId":%q,"conversationId":"conv-1","reaction":"like"}}`, msg.MsgID))
	set := recvReactions(t, alice, msg.MsgID)
	_ = recvReactions(t, bob, msg.MsgID)
	if len(set) != 1 || set[0].UserID != "bob" || set[0].Reaction != "like" {
		t.Fatalf("reaction set = %+v", set)
	}

	// 后写覆盖：同一用户换 kind，集合仍只有一条
	e.dispatch(t, bob, fmt.Sprintf(`{"type":"react_message","payload":{"messageId":%q,"conversationId":"conv-1","reaction":"love"}}`, msg.MsgID))
	set = recvReactions(t, alice, msg.MsgID)
	_ = recvReactions(t, bob, msg.MsgID)
	if len(set) != 1 || set[0].Reaction != "love" {
		t.Fatalf("overwrite should replace, got %+v", set)
	}

	e.dispatch(t, alice, fmt.Sprintf(`{"type":"react_message","payload":{"messageId":%q,"conversationId":"conv-1","reaction":"laugh"}}`, msg.MsgID))
	set = recvReactions(t, alice, msg.MsgID)
	_ = recvReactions(t, bob, msg.MsgID)
	if len(set) != 2 {
		t.Fatalf("expected two reactors, got %+v", set)
	}
}

func TestReactionNullRemoves(t *testing.T) {
	e := newEnv(t, map[string][]string{"conv-1": {"alice", "bob"}})
	alice := e.connect(t, "alice")
	bob := e.connect(t, "bob")
	e.dispatch(t, alice, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)
	e.dispatch(t, bob, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)

	e.dispatch(t, alice, `{"type":"send_message","payload":{"conversationId":"conv-1","content":"x"}}`)
	msg := recvNewMessage(t, alice)
	_ = recv(t, bob)

	e.dispatch(t, bob, fmt.Sprintf(`{"type":"react_message","payload":{"messageId":%q,"conversationId":"conv-1","reaction":"wow"}}`, msg.MsgID))
	_ = recv(t, alice)
	_ = recv(t, bob)

	e.dispatch(t, bob, fmt.Sprintf(`{"type":"react_message","payload":{"messageId":%q,"conversationId":"conv-1","reaction":null}}`, msg.MsgID))
	set := recvReactions(t, alice, msg.MsgID)
	_ = recvReactions(t, bob, msg.MsgID)
	if len(set) != 0 {
		t.Fatalf("removal should leave an empty set, got %+v", set)
	}
}

func TestReactionUnknownKindIsDropped(t *testing.T) {
	e := newEnv(t, map[string][]string{"conv-1": {"alice"}})
	alice := e.connect(t, "alice")
	e.dispatch(t, alice, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)

	e.dispatch(t, alice, `{"type":"send_message","payload":{"conversationId":"conv-1","content":"x"}}`)
	msg := recvNewMessage(t, alice)

	e.dispatch(t, alice, fmt.Sprintf(`{"type":"react_message","payload":{"messageId":%q,"conversationId":"conv-1","reaction":"cowboy"}}`, msg.MsgID))

	expectSilence(t, alice)
	if len(e.msgs.reactions[msg.MsgID]) != 0 {
		t.Fatalf("unknown kind must not be persisted")
	}
}

// ===== deletion =====

func TestDeleteForEveryoneRequiresSender(t *testing.T) {
	e := newEnv(t, map[string][]string{"conv-1": {"alice", "bob"}})
	alice := e.connect(t, "alice")
	bob := e.connect(t, "bob")
	e.dispatch(t, alice, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)
	e.dispatch(t, bob, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)

	e.dispatch(t, alice, `{"type":"send_message","payload":{"conversationId":"conv-1","content":"take it back"}}`)
	msg := recvNewMessage(t, alice)
	_ = recv(t, bob)

	// 非发送者尝试全员删除：静默丢弃
	e.dispatch(t, bob, fmt.Sprintf(`{"type":"delete_message","payload":{"messageId":%q,"conversationId":"conv-1","forEveryone":true}}`, msg.MsgID))
	expectSilence(t, alice)
	expectSilence(t, bob)
	if len(e.msgs.deletions[msg.MsgID]) != 0 {
		t.Fatalf("non-sender for-everyone delete must not write a marker")
	}

	// 发送者本人：落标记并全组广播
	e.dispatch(t, alice, fmt.Sprintf(`{"type":"delete_message","payload":{"messageId":%q,"conversationId":"conv-1","forEveryone":true}}`, msg.MsgID))
	for _, c := range []*chat.Client{alice, bob} {
		fr := recv(t, c)
		if fr.Type != chat.FrameMessageDeleted {
			t.Fatalf("conn=%s got %s", c.ConnID, fr.Type)
		}
		var p chat.MessageDeletedPayload
		if err := json.Unmarshal(fr.Payload, &p); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if p.MsgID != msg.MsgID || !p.DeletedForEveryone {
			t.Fatalf("payload = %+v", p)
		}
	}
	if fe, ok := e.msgs.deletions[msg.MsgID]["alice"]; !ok || !fe {
		t.Fatalf("expected a for-everyone marker by alice, got %+v", e.msgs.deletions[msg.MsgID])
	}
}

func TestDeleteForSelfEchoesOnlyRequester(t *testing.T) {
	e := newEnv(t, map[string][]string{"conv-1": {"alice", "bob"}})
	alice := e.connect(t, "alice")
	bob := e.connect(t, "bob")
	e.dispatch(t, alice, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)
	e.dispatch(t, bob, `{"type":"join_conversation","payload":{"conversationId":"conv-1"}}`)

	e.dispatch(t, alice, `{"type":"send_message","payload":{"conversationId":"conv-1","content":"only for me"}}`)
	msg := recvNewMessage(t, alice)
	_ = recv(t, bob)

	// 非发送者也能做“仅本人删除”
	e.dispatch(t, bob, fmt.Sprintf(`{"type":"delete_message","payload":{"messageId":%q,"conversationId":"conv-1","forEveryone":false}}`, msg.MsgID))

	fr := recv(t, bob)
	if fr.Type != chat.FrameMessageDeleted {
		t.Fatalf("got %s", fr.Type)
	}
	var p chat.MessageDeletedPayload
	if err := json.Unmarshal(fr.Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.DeletedForEveryone {
		t.Fatalf("personal delete must not claim for-everyone")
	}
	expectSilence(t, alice)

	if fe, ok := e.msgs.deletions[msg.MsgID]["bob"]; !ok || fe {
		t.Fatalf("expected a personal marker by bob, got %+v", e.msgs.deletions[msg.MsgID])
	}
}

// ===== helpers =====

func recvNewMessage(t *testing.T, c *chat.Client) chatmodel.Message {
	t.Helper()
	fr := recv(t, c)
	if fr.Type != chat.FrameNewMessage {
		t.Fatalf("got %s, want new_message", fr.Type)
	}
	var p chat.NewMessagePayload
	if err := json.Unmarshal(fr.Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	return p.Message
}

func recvReactions(t *testing.T, c *chat.Client, msgID string) []chatmodel.Reaction {
	t.Helper()
	fr := recv(t, c)
	if fr.Type != chat.FrameReactionUpdated {
		t.Fatalf("got %s, want message_reaction_updated", fr.Type)
	}
	var p chat.ReactionUpdatedPayload
	if err := json.Unmarshal(fr.Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.MsgID != msgID {
		t.Fatalf("reaction update for %s, want %s", p.MsgID, msgID)
	}
	return p.Reactions
}
