package reply

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/provider"
	"github.com/randalmurphal/charkit/script"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type stubEncoder map[string][]int

func (s stubEncoder) Encode(text string) ([]int, error) {
	return s[text], nil
}

func newTurn(view character.ViewScreen, labels ...string) *Turn {
	c := character.New("Aria")
	c.ViewScreen = view
	for _, l := range labels {
		c.EmotionImages = append(c.EmotionImages, character.EmotionImage{Label: l, Asset: "assets/" + l + ".png"})
	}
	return &Turn{Character: c, Session: c.CurrentChat()}
}

func newProcessor(client provider.Client) *Processor {
	return &Processor{
		Classifier: client,
		Now:        func() time.Time { return fixedNow },
		Shuffle:    func([]string) {},
	}
}

func TestFinalize(t *testing.T) {
	turn := newTurn(character.ViewScreenNone)
	turn.Scripts = script.New([]character.CustomScript{
		{In: "darling", Out: "friend", Type: "editoutput"},
		{In: "ignored", Out: "x", Type: "editinput"},
	})
	p := newProcessor(nil)

	out, err := p.Finalize(context.Background(), turn, "  Aria: Hello darling, ignored  ", nil)
	require.NoError(t, err)

	assert.Equal(t, "Hello friend, ignored", out.Text)
	assert.Equal(t, 0, out.Index)
	require.Len(t, turn.Session.Messages, 1)
	msg := turn.Session.Messages[0]
	assert.Equal(t, character.RoleChar, msg.Role)
	assert.Equal(t, out.Text, msg.Data)
	assert.Equal(t, turn.Character.ChaID, msg.Saying)
	assert.False(t, out.EmotionChanged)
}

func TestDirectives(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		special *provider.Special
		scripts []character.CustomScript
		want    string
	}{
		{name: "provider side data", raw: "hi", special: &provider.Special{Emotion: "happy"}, want: "happy"},
		{name: "case sensitive", raw: "hi", special: &provider.Special{Emotion: "Happy"}, want: ""},
		{name: "unknown label", raw: "hi", special: &provider.Special{Emotion: "angry"}, want: ""},
		{name: "inline tag", raw: "hi <emotion>sad</emotion>", want: "sad"},
		{
			name:    "script directive",
			raw:     "*cries*",
			scripts: []character.CustomScript{{In: `\*cries\*`, Out: script.EmotionDirective + "sad", Type: "editoutput"}},
			want:    "sad",
		},
		{name: "side data before inline", raw: "hi <emotion>sad</emotion>", special: &provider.Special{Emotion: "happy"}, want: "happy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := newTurn(character.ViewScreenNone, "happy", "sad")
			if tt.scripts != nil {
				turn.Scripts = script.New(tt.scripts)
			}
			out, err := newProcessor(nil).Finalize(context.Background(), turn, tt.raw, tt.special)
			require.NoError(t, err)

			assert.Equal(t, tt.want, out.Emotion)
			assert.Equal(t, tt.want != "", out.EmotionChanged)
			if tt.want == "" {
				assert.Empty(t, turn.Character.RecentEmotions)
				return
			}
			cur, ok := turn.Character.RecentEmotions.Current()
			require.True(t, ok)
			assert.Equal(t, tt.want, cur.Label)
			assert.Equal(t, "assets/"+tt.want+".png", cur.Asset)
			assert.Equal(t, fixedNow, cur.At)
			assert.NotContains(t, out.Text, "<emotion>")
		})
	}
}

func TestClassifierBias(t *testing.T) {
	enc := stubEncoder{"happy": {1}, "sad": {2}, "angry": {3, 4}}
	labels := []string{"happy", "sad", "angry"}

	t.Run("boost only", func(t *testing.T) {
		bias, err := ClassifierBias(enc, labels, nil)
		require.NoError(t, err)
		assert.Equal(t, map[int]int{1: 10, 2: 10, 3: 10, 4: 10}, map[int]int(bias))
	})

	t.Run("decaying penalty", func(t *testing.T) {
		recent := character.EmotionRing{{Label: "angry"}, {Label: "sad"}, {Label: "happy"}}
		bias, err := ClassifierBias(enc, labels, recent)
		require.NoError(t, err)
		// newest -20, then -15, then -10
		assert.Equal(t, map[int]int{1: -10, 2: -5, 3: 0, 4: 0}, map[int]int(bias))
	})

	t.Run("full ring drops oldest", func(t *testing.T) {
		recent := character.EmotionRing{
			{Label: "angry"}, {Label: "sad"}, {Label: "sad"}, {Label: "sad"}, {Label: "happy"},
		}
		bias, err := ClassifierBias(enc, labels, recent)
		require.NoError(t, err)
		// angry is evicted before biasing; sad gets -5, -10, -15
		assert.Equal(t, map[int]int{1: -10, 2: -20, 3: 10, 4: 10}, map[int]int(bias))
	})

	t.Run("clamped", func(t *testing.T) {
		recent := character.EmotionRing{{Label: "sad"}, {Label: "sad"}, {Label: "sad"}, {Label: "sad"}}
		many := stubEncoder{"sad": {2, 2, 2, 2, 2, 2}}
		bias, err := ClassifierBias(many, []string{"sad"}, recent)
		require.NoError(t, err)
		assert.Equal(t, MinBias, bias[2])
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		output string
		labels []string
		want   string
		ok     bool
	}{
		{"exact", "sad", []string{"happy", "sad"}, "sad", true},
		{"normalized", " S a d\n", []string{"happy", "sad"}, "sad", true},
		{"contains", "verysad", []string{"happy", "sad"}, "sad", true},
		{"structured", `{"emotion": "happy"}`, []string{"happy", "sad"}, "happy", true},
		{"neutral fallback", "bewildered", []string{"happy", "neutral"}, "neutral", true},
		{"no match", "bewildered", []string{"happy", "sad"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := newTurn(character.ViewScreenEmotion, tt.labels...)
			client := provider.NewMockClient(tt.output)
			p := newProcessor(client)

			label, ok, err := p.Classify(context.Background(), turn.Character, "I am so sad today")
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, label)
			if ok {
				assert.Len(t, turn.Character.RecentEmotions, 1)
			} else {
				assert.Empty(t, turn.Character.RecentEmotions)
			}
		})
	}
}

func TestClassify_Request(t *testing.T) {
	turn := newTurn(character.ViewScreenEmotion, "happy", "sad")
	client := provider.NewMockClient("happy")
	p := newProcessor(client)
	p.Encoder = stubEncoder{"happy": {1}, "sad": {2}}

	_, _, err := p.Classify(context.Background(), turn.Character, "the reply")
	require.NoError(t, err)

	req := client.LastCall()
	require.NotNil(t, req)
	assert.Equal(t, provider.ChannelSubmodel, req.Channel)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.4, *req.Temperature, 1e-9)
	assert.Equal(t, 30, req.MaxTokens)
	assert.Equal(t, map[int]int{1: 10, 2: 10}, req.Bias)
	assert.Equal(t, turn.Character.ChaID, req.CharacterID)

	require.Len(t, req.Messages, 4)
	assert.Equal(t, DefaultEmotionPrompt+"\n\n list: happy, sad \noutput only one word.", req.Messages[0].Content)
	assert.Equal(t, `"Good morning, Master! Is there anything I can do for you today?"`, req.Messages[1].Content)
	assert.Equal(t, provider.RoleAssistant, req.Messages[2].Role)
	assert.Equal(t, "happy", req.Messages[2].Content)
	assert.Equal(t, "the reply", req.Messages[3].Content)
}

func TestClassify_RingEviction(t *testing.T) {
	turn := newTurn(character.ViewScreenEmotion, "happy", "sad")
	c := turn.Character
	for _, l := range []string{"sad", "happy", "sad", "happy", "sad"} {
		c.RecentEmotions = append(c.RecentEmotions, character.EmotionRecord{Label: l})
	}
	p := newProcessor(provider.NewMockClient("happy"))

	label, ok, err := p.Classify(context.Background(), c, "reply")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "happy", label)

	assert.Len(t, c.RecentEmotions, character.EmotionHistorySize)
	assert.Equal(t, []string{"happy", "sad", "happy", "sad", "happy"}, c.RecentEmotions.Labels())
}

func TestAfter_ClassifierFailureIsReported(t *testing.T) {
	turn := newTurn(character.ViewScreenEmotion, "happy")
	boom := errors.New("backend down")
	p := newProcessor(provider.NewMockClient("").WithError(boom))

	out, err := p.Process(context.Background(), turn, &provider.Response{Content: "hello"})
	require.NoError(t, err)
	require.Len(t, out.Reports, 1)
	assert.ErrorIs(t, out.Reports[0], boom)
	assert.Len(t, turn.Session.Messages, 1, "turn still completes")
}

func TestAfter_DirectiveSkipsClassifier(t *testing.T) {
	turn := newTurn(character.ViewScreenEmotion, "happy", "sad")
	client := provider.NewMockClient("sad")
	p := newProcessor(client)

	out, err := p.Process(context.Background(), turn, &provider.Response{
		Content: "hello",
		Special: &provider.Special{Emotion: "happy"},
	})
	require.NoError(t, err)
	assert.Equal(t, "happy", out.Emotion)
	assert.Zero(t, client.CallCount())
}

func TestAfter_ScriptDirectiveSkipsClassifier(t *testing.T) {
	turn := newTurn(character.ViewScreenEmotion, "happy", "sad")
	turn.Scripts = script.New([]character.CustomScript{
		{In: `\*shrugs\*`, Out: script.EmotionDirective + "confused", Type: "editoutput"},
	})
	client := provider.NewMockClient("sad")
	p := newProcessor(client)

	out, err := p.Process(context.Background(), turn, &provider.Response{Content: "*shrugs* no idea"})
	require.NoError(t, err)

	assert.True(t, out.ScriptEmotion)
	assert.False(t, out.EmotionChanged, "label is not in the emotion set")
	assert.Empty(t, out.Emotion)
	assert.Empty(t, turn.Character.RecentEmotions)
	assert.Zero(t, client.CallCount())
}

func TestTranscript(t *testing.T) {
	msgs := []character.Message{
		{Role: character.RoleUser, Data: "old question"},
		{Role: character.RoleChar, Data: "old answer"},
		{Role: character.RoleUser, Data: "where\nare we?"},
		{Role: character.RoleChar, Data: "In the\nforest\nat night."},
		{Role: character.RoleChar, Data: "*looks around*"},
	}
	want := "user: where are we? \n" +
		"character: In the forest\nat night. \n" +
		"character: *looks around* \n"
	assert.Equal(t, want, Transcript(msgs))
	assert.Equal(t, "", Transcript(nil))
}

func TestGenerateImage(t *testing.T) {
	var got string
	gen := ImageGeneratorFunc(func(_ context.Context, _ *character.Character, transcript string) (string, error) {
		got = transcript
		return "1girl, forest", nil
	})

	turn := newTurn(character.ViewScreenImgGen)
	turn.Session.Append(character.Message{Role: character.RoleUser, Data: "hi"})
	p := newProcessor(nil)
	p.ImageGen = gen

	out, err := p.Process(context.Background(), turn, &provider.Response{Content: "hello"})
	require.NoError(t, err)
	assert.Empty(t, out.Reports)
	assert.Equal(t, "user: hi \ncharacter: hello \n", got)
	assert.Equal(t, "1girl, forest", turn.Session.SDData)

	t.Run("group rooms report a capability error", func(t *testing.T) {
		turn := newTurn(character.ViewScreenImgGen)
		turn.Group = true
		out, err := p.Process(context.Background(), turn, &provider.Response{Content: "hello"})
		require.NoError(t, err)
		require.Len(t, out.Reports, 1)
		assert.True(t, provider.IsCapabilityError(out.Reports[0]))
		assert.Empty(t, turn.Session.SDData)
	})
}

func TestConsumeStream(t *testing.T) {
	turn := newTurn(character.ViewScreenNone, "happy")
	turn.Scripts = script.New([]character.CustomScript{{In: "!+", Out: ".", Type: "editoutput"}})
	p := newProcessor(nil)

	chunks := make(chan provider.StreamChunk, 4)
	chunks <- provider.StreamChunk{Content: "Aria: Hel"}
	chunks <- provider.StreamChunk{Content: "Aria: Hello!!"}
	chunks <- provider.StreamChunk{Content: "Aria: Hello!! <emotion>happy</emotion>", Done: true}
	close(chunks)

	out, err := p.ConsumeStream(context.Background(), turn, chunks)
	require.NoError(t, err)

	assert.Equal(t, "Hello.", out.Text)
	assert.Equal(t, "happy", out.Emotion)
	assert.False(t, turn.Session.IsStreaming)
	require.Len(t, turn.Session.Messages, 1)
	assert.Equal(t, "Hello.", turn.Session.Messages[0].Data)
}

func TestReducer_StreamingFlag(t *testing.T) {
	turn := newTurn(character.ViewScreenNone)
	r := newProcessor(nil).NewReducer(turn)
	ctx := context.Background()

	assert.True(t, turn.Session.IsStreaming)
	require.NoError(t, r.Reduce(ctx, provider.StreamChunk{Content: "one"}))
	assert.Equal(t, "one", turn.Session.Messages[0].Data)
	assert.True(t, turn.Session.IsStreaming)

	require.NoError(t, r.Reduce(ctx, provider.StreamChunk{Content: "one two", Done: true}))
	assert.False(t, turn.Session.IsStreaming)
	assert.True(t, r.Done())
	assert.Equal(t, "one two", r.Text())
}

func TestConsumeStream_Error(t *testing.T) {
	turn := newTurn(character.ViewScreenNone)
	boom := errors.New("stream broke")
	chunks := make(chan provider.StreamChunk, 2)
	chunks <- provider.StreamChunk{Content: "partial"}
	chunks <- provider.StreamChunk{Error: boom, Done: true}
	close(chunks)

	_, err := newProcessor(nil).ConsumeStream(context.Background(), turn, chunks)
	assert.ErrorIs(t, err, boom)
	assert.False(t, turn.Session.IsStreaming)
	assert.Equal(t, "partial", turn.Session.Messages[0].Data)
}
