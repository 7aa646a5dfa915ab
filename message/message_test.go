package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"jsonrpc":"2.0","method":"add","params":[2,3],"id":1}`))
	require.NoError(t, err)

	assert.Equal(t, "add", req.Method)
	require.Len(t, req.Params, 2)
	assert.JSONEq(t, "2", string(req.Params[0]))
	assert.JSONEq(t, "3", string(req.Params[1]))
	assert.True(t, req.ID.Equal(NumberID(1)))
}

func TestDecodeRequestParams(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"omitted", `{"jsonrpc":"2.0","method":"ping","id":1}`, 0},
		{"null", `{"jsonrpc":"2.0","method":"ping","params":null,"id":1}`, 0},
		{"empty", `{"jsonrpc":"2.0","method":"ping","params":[],"id":1}`, 0},
		{"nested", `{"jsonrpc":"2.0","method":"ping","params":[[1,2],{"a":1}],"id":1}`, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tc.body))
			require.NoError(t, err)
			assert.Len(t, req.Params, tc.want)
		})
	}
}

func TestDecodeRequestInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"named params", `{"jsonrpc":"2.0","method":"add","params":{"a":1},"id":1}`, ErrMalformed},
		{"object id", `{"jsonrpc":"2.0","method":"add","params":[],"id":{}}`, ErrMalformed},
		{"bool id", `{"jsonrpc":"2.0","method":"add","params":[],"id":true}`, ErrMalformed},
		{"wrong version", `{"jsonrpc":"1.0","method":"add","params":[],"id":1}`, ErrVersion},
		{"empty method", `{"jsonrpc":"2.0","method":"","params":[],"id":1}`, ErrEmptyMethod},
		{"missing id", `{"jsonrpc":"2.0","method":"add","params":[]}`, ErrMissingID},
		{"not json", `{"jsonrpc":`, ErrMalformed},
		{"array", `[1,2,3]`, ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tc.body))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDecodeRequestKeepsIDOnValidationFailure(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"jsonrpc":"1.0","method":"add","id":"abc"}`))
	require.ErrorIs(t, err, ErrVersion)
	require.NotNil(t, req)
	assert.Equal(t, `"abc"`, req.ID.String())
}

func TestDecodeRequestGarbage(t *testing.T) {
	inputs := []string{"", "null", "0", `"x"`, "{", "}", "\x00\xff", `{"id":[}`, `{"params":[1,}`}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			_, err := DecodeRequest([]byte(in))
			assert.Error(t, err)
		}, "input %q", in)
	}
}

func TestIDRoundTrip(t *testing.T) {
	for _, raw := range []string{`1`, `-42`, `3.5`, `1e3`, `"req-1"`, `"a\"b"`, `null`} {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(raw), &id), raw)

		out, err := json.Marshal(id)
		require.NoError(t, err)
		assert.Equal(t, raw, string(out))
	}
}

func TestNullIDIsNotMissing(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"jsonrpc":"2.0","method":"ping","id":null}`))
	require.NoError(t, err)
	assert.True(t, req.ID.Equal(NullID()))
}

func TestRequestMarshal(t *testing.T) {
	out, err := json.Marshal(NewRequest(NumberID(7), "ping"))
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","method":"ping","params":[],"id":7}`, string(out))

	out, err = json.Marshal(Request{JSONRPC: Version, Method: "x", ID: StringID("a")})
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","method":"x","params":[],"id":"a"}`, string(out))
}

func TestResponseMarshal(t *testing.T) {
	out, err := json.Marshal(NewResult(NumberID(1), json.RawMessage("5")))
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","result":5,"id":1}`, string(out))

	out, err = json.Marshal(NewResult(NumberID(2), nil))
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","result":null,"id":2}`, string(out))

	out, err = json.Marshal(NewErrorResponse(StringID("x"), MethodNotFound("sub")))
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","error":{"code":-32601,"message":"method not found: sub"},"id":"x"}`, string(out))
}

func TestDecodeResponse(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"jsonrpc":"2.0","result":{"a":1},"id":"r"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(resp.Result))
	assert.Nil(t, resp.Error)

	resp, err = DecodeResponse([]byte(`{"jsonrpc":"2.0","error":{"code":1,"message":"nope","data":"nope"},"id":"r"}`))
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, 1, resp.Error.Code)
	assert.True(t, resp.Error.IsApplication())
	assert.JSONEq(t, `"nope"`, string(resp.Error.Data))

	resp, err = DecodeResponse([]byte(`{"jsonrpc":"2.0","id":"r"}`))
	require.NoError(t, err)
	assert.Nil(t, resp.Result)
	assert.Nil(t, resp.Error)

	_, err = DecodeResponse([]byte(`{"jsonrpc":"2.0","result":1,"error":{"code":1,"message":"x"},"id":"r"}`))
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = DecodeResponse([]byte(`{"jsonrpc":"2.1","result":1,"id":"r"}`))
	assert.ErrorIs(t, err, ErrVersion)
}

func TestApplicationCode(t *testing.T) {
	assert.Equal(t, CodeApplication, Application(-5, "x", nil).Code)
	assert.Equal(t, 7, Application(7, "x", nil).Code)
	assert.False(t, MethodNotFound("x").IsApplication())
}

func TestDecodeRequestExactMemberNames(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"JSONRPC":"2.0","METHOD":"add","Params":[1],"ID":1}`))
	require.ErrorIs(t, err, ErrVersion)
	assert.Empty(t, req.Method)
	assert.Empty(t, req.Params)
	assert.Empty(t, req.ID)

	req, err = DecodeRequest([]byte(`{"jsonrpc":"2.0","method":"add","Method":"sub","params":[],"id":1}`))
	require.NoError(t, err)
	assert.Equal(t, "add", req.Method)
}

func TestValidateRejectsNonJSONID(t *testing.T) {
	for _, raw := range []string{"{", "true", "[1]", `"open`, "nul"} {
		req := NewRequest(ID(raw), "add")
		assert.ErrorIs(t, req.Validate(), ErrInvalidID, raw)
		assert.False(t, ID(raw).Valid(), raw)
	}
	for _, id := range []ID{NumberID(3), StringID("x"), NullID()} {
		assert.NoError(t, NewRequest(id, "add").Validate())
	}
}

func TestUnmarshalIDDoesNotAlias(t *testing.T) {
	first := StringID("first-id")
	reused := first[:0]
	require.NoError(t, json.Unmarshal([]byte(`"2nd"`), &reused))

	assert.Equal(t, `"first-id"`, first.String())
	assert.Equal(t, `"2nd"`, reused.String())
}
