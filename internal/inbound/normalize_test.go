package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMedia struct {
	data []byte
	mime string
	err  error
	ids  []string
}

func (m *fakeMedia) FetchMedia(_ context.Context, id string) ([]byte, string, error) {
	m.ids = append(m.ids, id)
	return m.data, m.mime, m.err
}

type fakeTranscriber struct {
	text  string
	err   error
	mimes []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, mime string) (string, error) {
	f.mimes = append(f.mimes, mime)
	return f.text, f.err
}

func listReply(id, title string) Message {
	return Message{Type: "interactive", Interactive: &Interactive{Type: "list_reply", ListReply: &Reply{ID: id, Title: title}}}
}

func TestNormalize_Text(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil, nil)
	got := n.Normalize(context.Background(), Message{Type: "text", Text: &Text{Body: "  Recife  "}})
	assert.Equal(t, "  Recife  ", got)
}

func TestNormalize_ListSelection(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil, nil)
	ctx := context.Background()

	assert.Equal(t, "selecionar_vaga 42", n.Normalize(ctx, listReply("vaga:42", "Farmácia X — Noite")))
	assert.Equal(t, "Outra opção", n.Normalize(ctx, listReply("menu:2", "Outra opção")))
	assert.Equal(t, UntitledSelection, n.Normalize(ctx, listReply("menu:2", "")))
	assert.Equal(t, "Sem id", n.Normalize(ctx, listReply("vaga:", "Sem id")))
}

func TestNormalize_Buttons(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil, nil)
	ctx := context.Background()

	btn := Message{Type: "interactive", Interactive: &Interactive{Type: "button_reply", ButtonReply: &Reply{ID: "yes", Title: "Sim"}}}
	assert.Equal(t, "Sim", n.Normalize(ctx, btn))
	assert.Equal(t, "Não", n.Normalize(ctx, Message{Type: "button", Button: &Button{Text: "Não", Payload: "no"}}))
}

func TestNormalize_UnknownIsDefault(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil, nil)
	ctx := context.Background()

	assert.Equal(t, DefaultText, n.Normalize(ctx, Message{Type: "sticker"}))
	assert.Equal(t, DefaultText, n.Normalize(ctx, Message{}))
	assert.Equal(t, DefaultText, n.Normalize(ctx, Message{Type: "text"}))
	assert.Equal(t, DefaultText, n.Normalize(ctx, Message{Type: "interactive"}))
	assert.Equal(t, "legenda", n.Normalize(ctx, Message{Type: "image", Text: &Text{Body: "legenda"}}))
}

func TestNormalize_Audio(t *testing.T) {
	t.Parallel()

	media := &fakeMedia{data: []byte("ogg"), mime: "audio/ogg"}
	tr := &fakeTranscriber{text: " moro em Recife "}
	n := NewNormalizer(media, tr)

	got := n.Normalize(context.Background(), Message{Type: "audio", Audio: &Media{ID: "m1", MimeType: "audio/ogg; codecs=opus"}})
	assert.Equal(t, "moro em Recife", got)
	assert.Equal(t, []string{"m1"}, media.ids)
	assert.Equal(t, []string{"audio/ogg"}, tr.mimes)
}

func TestNormalize_AudioFailuresApologize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	audio := Message{Type: "audio", Audio: &Media{ID: "m1"}}

	cases := map[string]*Normalizer{
		"not configured": NewNormalizer(nil, nil),
		"fetch error":    NewNormalizer(&fakeMedia{err: errors.New("403")}, &fakeTranscriber{text: "oi"}),
		"stt error":      NewNormalizer(&fakeMedia{data: []byte("x")}, &fakeTranscriber{err: errors.New("quota")}),
		"empty":          NewNormalizer(&fakeMedia{data: []byte("x")}, &fakeTranscriber{text: "  "}),
	}
	for name, n := range cases {
		assert.Equal(t, AudioApology, n.Normalize(ctx, audio), name)
	}
	assert.Equal(t, AudioApology, NewNormalizer(nil, nil).Normalize(ctx, Message{Type: "audio"}))
}

func TestAudioMime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "audio/ogg", audioMime("audio/ogg; codecs=opus", "audio/mpeg"))
	assert.Equal(t, "audio/mpeg", audioMime("", "audio/mpeg"))
	assert.Equal(t, defaultAudioMime, audioMime("", ""))
}

func TestAnnotate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "(Nome: Maria) sim", Annotate("Maria", "sim"))
	assert.Equal(t, "sim", Annotate("  ", "sim"))
}

func TestExtract(t *testing.T) {
	t.Parallel()

	raw := `{
	  "object": "whatsapp_business_account",
	  "entry": [{"id": "1", "changes": [{"field": "messages", "value": {
	    "messaging_product": "whatsapp",
	    "contacts": [{"wa_id": "5581999990000", "profile": {"name": "Maria Silva"}}],
	    "messages": [{"from": "5581999990000", "id": "wamid.1", "type": "interactive",
	      "interactive": {"type": "list_reply", "list_reply": {"id": "vaga:7", "title": "Farmácia"}}}]
	  }}]}]
	}`
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	ev, ok := Extract(p)
	require.True(t, ok)
	assert.Equal(t, "5581999990000", ev.UserID)
	assert.Equal(t, "Maria Silva", ev.DisplayName)
	assert.Equal(t, "selecionar_vaga 7", NewNormalizer(nil, nil).Normalize(context.Background(), ev.Message))
}

func TestExtract_FallsBackToContactID(t *testing.T) {
	t.Parallel()

	p := Payload{Entry: []Entry{{Changes: []Change{{Value: Value{
		Contacts: []Contact{{WaID: "55119"}},
		Messages: []Message{{Type: "text", Text: &Text{Body: "oi"}}},
	}}}}}}
	ev, ok := Extract(p)
	require.True(t, ok)
	assert.Equal(t, "55119", ev.UserID)
}

func TestExtract_NothingToProcess(t *testing.T) {
	t.Parallel()

	_, ok := Extract(Payload{})
	assert.False(t, ok)

	_, ok = Extract(Payload{Entry: []Entry{{Changes: []Change{{Value: Value{}}}}}})
	assert.False(t, ok)

	_, ok = Extract(Payload{Entry: []Entry{{Changes: []Change{{Value: Value{Messages: []Message{{Type: "text"}}}}}}}})
	assert.False(t, ok)
}
