package wire

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type CodecSuite struct {
	suite.Suite
	codec *Codec
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func (s *CodecSuite) SetupTest() {
	codec, err := NewCodec(DefaultConfig())
	s.Require().NoError(err)
	s.codec = codec
}

const testPlayerID = "0f8fad5b-d9cb-469f-a165-70867728950e"

func jsonPayload(size int) []byte {
	var b strings.Builder
	b.WriteString(`{"name":"Alice","inventory":"`)
	for b.Len() < size-2 {
		b.WriteString("diamond_sword,")
	}
	out := []byte(b.String())[:size-2]
	return append(out, '"', '}')
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

// Config tests

func (s *CodecSuite) TestDefaultConfigIsValid() {
	s.NoError(DefaultConfig().Validate())
}

func (s *CodecSuite) TestConfigRejectsThresholdAboveCeiling() {
	cfg := DefaultConfig()
	cfg.CompressThreshold = cfg.MaxCompressedSize
	s.ErrorIs(cfg.Validate(), ErrInvalidConfig)
}

func (s *CodecSuite) TestConfigRejectsNonPositiveLimits() {
	cfg := DefaultConfig()
	cfg.MaxDecompressedSize = 0
	s.ErrorIs(cfg.Validate(), ErrInvalidConfig)
}

func (s *CodecSuite) TestConfigRejectsThresholdBeyondStringField() {
	cfg := Config{CompressThreshold: 70000, MaxCompressedSize: 80000, MaxDecompressedSize: 1 << 20}
	_, err := NewCodec(cfg)
	s.ErrorIs(err, ErrInvalidConfig)
}

// PlayerData tests

func (s *CodecSuite) TestSmallPayloadRoundTripsUncompressed() {
	payload := []byte(`{"uuid":"` + testPlayerID + `","name":"Alice"}`)

	data, err := s.codec.EncodePlayerUpdate(testPlayerID, payload)
	s.Require().NoError(err)

	msg, err := s.codec.Decode(data)
	s.Require().NoError(err)
	s.Equal(TypePlayerData, msg.Type)
	s.Equal(testPlayerID, msg.PlayerID)
	s.Equal(payload, msg.Payload)
	s.False(msg.Compressed)
}

func (s *CodecSuite) TestPayloadAtThresholdIsNotCompressed() {
	payload := jsonPayload(30000)

	data, err := s.codec.EncodePlayerUpdate(testPlayerID, payload)
	s.Require().NoError(err)

	msg, err := s.codec.Decode(data)
	s.Require().NoError(err)
	s.False(msg.Compressed)
	s.Equal(payload, msg.Payload)
}

func (s *CodecSuite) TestLargeCompressiblePayloadRoundTripsCompressed() {
	payload := jsonPayload(120000)

	data, err := s.codec.EncodePlayerUpdate(testPlayerID, payload)
	s.Require().NoError(err)
	s.Less(len(data), 32000+64)

	msg, err := s.codec.Decode(data)
	s.Require().NoError(err)
	s.True(msg.Compressed)
	s.Equal(testPlayerID, msg.PlayerID)
	s.Equal(payload, msg.Payload)
}

func (s *CodecSuite) TestIncompressiblePayloadIsTooLarge() {
	data, err := s.codec.EncodePlayerUpdate(testPlayerID, randomBytes(40000))

	s.ErrorIs(err, ErrPayloadTooLarge)
	s.Nil(data)
}

func (s *CodecSuite) TestCeilingAppliesAfterCompression() {
	// Compressible input well beyond the ceiling still fits once gzipped.
	_, err := s.codec.EncodePlayerUpdate(testPlayerID, bytes.Repeat([]byte("a"), 500000))
	s.NoError(err)
}

func (s *CodecSuite) TestCustomThresholds() {
	codec, err := NewCodec(Config{CompressThreshold: 10, MaxCompressedSize: 100, MaxDecompressedSize: 1000})
	s.Require().NoError(err)

	data, err := codec.EncodePlayerUpdate(testPlayerID, bytes.Repeat([]byte("x"), 50))
	s.Require().NoError(err)
	msg, err := codec.Decode(data)
	s.Require().NoError(err)
	s.True(msg.Compressed)

	_, err = codec.EncodePlayerUpdate(testPlayerID, randomBytes(200))
	s.ErrorIs(err, ErrPayloadTooLarge)
}

func (s *CodecSuite) TestDecompressionLimitIsEnforced() {
	data, err := s.codec.EncodePlayerUpdate(testPlayerID, bytes.Repeat([]byte("a"), 100000))
	s.Require().NoError(err)

	small, err := NewCodec(Config{CompressThreshold: 100, MaxCompressedSize: 200, MaxDecompressedSize: 50000})
	s.Require().NoError(err)
	_, err = small.Decode(data)
	s.ErrorIs(err, ErrMalformedMessage)
}

// Other message types

func (s *CodecSuite) TestPlayerRemoveRoundTrips() {
	data, err := s.codec.EncodePlayerRemove(testPlayerID)
	s.Require().NoError(err)

	msg, err := s.codec.Decode(data)
	s.Require().NoError(err)
	s.Equal(TypePlayerRemove, msg.Type)
	s.Equal(testPlayerID, msg.PlayerID)
	s.Nil(msg.Payload)
}

func (s *CodecSuite) TestRefreshRequestIsTagOnly() {
	data := s.codec.EncodeRefreshRequest()
	s.Equal(append([]byte{0, 7}, "Refresh"...), data)

	msg, err := s.codec.Decode(data)
	s.Require().NoError(err)
	s.Equal(TypeRefresh, msg.Type)
}

func (s *CodecSuite) TestServerInfoRoundTrips() {
	data, err := s.codec.EncodeServerInfo(ServerInfo{Version: "1.20.4", OnlinePlayers: 42})
	s.Require().NoError(err)

	msg, err := s.codec.Decode(data)
	s.Require().NoError(err)
	s.Equal(TypeServerInfo, msg.Type)
	s.Require().NotNil(msg.ServerInfo)
	s.Equal("1.20.4", msg.ServerInfo.Version)
	s.Equal(42, msg.ServerInfo.OnlinePlayers)
}

// Malformed input

func (s *CodecSuite) TestEveryTruncationIsMalformed() {
	small, err := s.codec.EncodePlayerUpdate(testPlayerID, []byte(`{"name":"Bob"}`))
	s.Require().NoError(err)
	large, err := s.codec.EncodePlayerUpdate(testPlayerID, jsonPayload(60000))
	s.Require().NoError(err)

	for _, full := range [][]byte{small, large} {
		for i := 0; i < len(full); i += 1 + len(full)/200 {
			_, err := s.codec.Decode(full[:i])
			s.ErrorIs(err, ErrMalformedMessage, "truncated at %d", i)
		}
	}
}

func (s *CodecSuite) TestUnknownTagIsMalformed() {
	data := append([]byte{0, 5}, "Hello"...)
	_, err := s.codec.Decode(data)
	s.ErrorIs(err, ErrMalformedMessage)
}

func (s *CodecSuite) TestInvalidBoolIsMalformed() {
	var buf bytes.Buffer
	writeTestString(&buf, "PlayerData")
	writeTestString(&buf, testPlayerID)
	buf.WriteByte(7)

	_, err := s.codec.Decode(buf.Bytes())
	s.ErrorIs(err, ErrMalformedMessage)
}

func (s *CodecSuite) TestNegativeCompressedLengthIsMalformed() {
	var buf bytes.Buffer
	writeTestString(&buf, "PlayerData")
	writeTestString(&buf, testPlayerID)
	buf.WriteByte(1)
	_ = binary.Write(&buf, binary.BigEndian, int32(-5))

	_, err := s.codec.Decode(buf.Bytes())
	s.ErrorIs(err, ErrMalformedMessage)
}

func (s *CodecSuite) TestCorruptGzipIsMalformed() {
	var buf bytes.Buffer
	writeTestString(&buf, "PlayerData")
	writeTestString(&buf, testPlayerID)
	buf.WriteByte(1)
	junk := []byte("definitely not gzip")
	_ = binary.Write(&buf, binary.BigEndian, int32(len(junk)))
	buf.Write(junk)

	_, err := s.codec.Decode(buf.Bytes())
	s.ErrorIs(err, ErrMalformedMessage)
}

func (s *CodecSuite) TestInvalidUTF8IsMalformed() {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint16(2))
	buf.Write([]byte{0xff, 0xfe})

	_, err := s.codec.Decode(buf.Bytes())
	s.ErrorIs(err, ErrMalformedMessage)
}

func (s *CodecSuite) TestTrailingBytesAreMalformed() {
	data := append(s.codec.EncodeRefreshRequest(), 0)
	_, err := s.codec.Decode(data)
	s.ErrorIs(err, ErrMalformedMessage)

	remove, err := s.codec.EncodePlayerRemove(testPlayerID)
	s.Require().NoError(err)
	_, err = s.codec.Decode(append(remove, "junk"...))
	s.ErrorIs(err, ErrMalformedMessage)
}

func (s *CodecSuite) TestLoneSurrogateIsMalformed() {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint16(3))
	buf.Write([]byte{0xed, 0xa0, 0xbd})

	_, err := s.codec.Decode(buf.Bytes())
	s.ErrorIs(err, ErrMalformedMessage)
}

func (s *CodecSuite) TestOverlongSequenceIsMalformed() {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint16(2))
	buf.Write([]byte{0xc1, 0x81})

	_, err := s.codec.Decode(buf.Bytes())
	s.ErrorIs(err, ErrMalformedMessage)
}

// Modified UTF-8

// {"name":"Alice","title":"🔥 champ"} as DataOutputStream.writeUTF frames it:
// the emoji is the surrogate pair D83D DD25, three bytes each.
var jvmFirePayload = []byte("{\"name\":\"Alice\",\"title\":\"\xed\xa0\xbd\xed\xb4\xa5 champ\"}")

func (s *CodecSuite) TestJVMFramedPlayerDataDecodes() {
	var buf bytes.Buffer
	writeTestString(&buf, "PlayerData")
	writeTestString(&buf, testPlayerID)
	buf.WriteByte(0)
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(jvmFirePayload)))
	buf.Write(jvmFirePayload)

	msg, err := s.codec.Decode(buf.Bytes())
	s.Require().NoError(err)
	s.Equal(testPlayerID, msg.PlayerID)
	s.Equal(`{"name":"Alice","title":"🔥 champ"}`, string(msg.Payload))
}

func (s *CodecSuite) TestJVMEncodedNULDecodes() {
	var buf bytes.Buffer
	writeTestString(&buf, "ServerInfo")
	_ = binary.Write(&buf, binary.BigEndian, uint16(5))
	buf.Write([]byte{'a', 0xc0, 0x80, 'b', 'c'})
	_ = binary.Write(&buf, binary.BigEndian, int32(3))

	msg, err := s.codec.Decode(buf.Bytes())
	s.Require().NoError(err)
	s.Equal("a\x00bc", msg.ServerInfo.Version)
}

func (s *CodecSuite) TestStandardFourByteUTF8IsAccepted() {
	var buf bytes.Buffer
	writeTestString(&buf, "ServerInfo")
	writeTestString(&buf, "1.20 🔥")
	_ = binary.Write(&buf, binary.BigEndian, int32(1))

	msg, err := s.codec.Decode(buf.Bytes())
	s.Require().NoError(err)
	s.Equal("1.20 🔥", msg.ServerInfo.Version)
}

func (s *CodecSuite) TestEncoderWritesJVMStrings() {
	payload := []byte("{\"name\":\"Alice\",\"title\":\"🔥 champ\",\"nul\":\"\x00\"}")

	data, err := s.codec.EncodePlayerUpdate(testPlayerID, payload)
	s.Require().NoError(err)
	s.True(bytes.Contains(data, []byte{0xed, 0xa0, 0xbd, 0xed, 0xb4, 0xa5}))
	s.True(bytes.Contains(data, []byte{0xc0, 0x80}))
	s.False(bytes.Contains(data, []byte("🔥")))

	msg, err := s.codec.Decode(data)
	s.Require().NoError(err)
	s.Equal(payload, msg.Payload)
}

func (s *CodecSuite) TestPayloadOutgrowingStringFieldIsCompressed() {
	codec, err := NewCodec(Config{CompressThreshold: 60000, MaxCompressedSize: 65000, MaxDecompressedSize: 1 << 20})
	s.Require().NoError(err)

	// Each NUL takes two bytes on the wire, so 40000 of them overflow the field.
	payload := make([]byte, 40000)
	data, err := codec.EncodePlayerUpdate(testPlayerID, payload)
	s.Require().NoError(err)

	msg, err := codec.Decode(data)
	s.Require().NoError(err)
	s.True(msg.Compressed)
	s.Equal(payload, msg.Payload)
}

func (s *CodecSuite) TestOverlongPlayerIDIsFieldTooLong() {
	_, err := s.codec.EncodePlayerUpdate(strings.Repeat("x", MaxStringLen+1), []byte(`{}`))
	s.ErrorIs(err, ErrFieldTooLong)
	s.NotErrorIs(err, ErrPayloadTooLarge)

	_, err = s.codec.EncodePlayerRemove(strings.Repeat("x", MaxStringLen+1))
	s.ErrorIs(err, ErrFieldTooLong)
}

// Live configuration

func (s *CodecSuite) TestSetConfigChangesThreshold() {
	payload := bytes.Repeat([]byte("x"), 50)
	s.Require().NoError(s.codec.SetConfig(Config{CompressThreshold: 10, MaxCompressedSize: 100, MaxDecompressedSize: 1000}))

	data, err := s.codec.EncodePlayerUpdate(testPlayerID, payload)
	s.Require().NoError(err)
	msg, err := s.codec.Decode(data)
	s.Require().NoError(err)
	s.True(msg.Compressed)
	s.Equal(10, s.codec.Config().CompressThreshold)
}

func (s *CodecSuite) TestSetConfigRejectsInvalidLimits() {
	err := s.codec.SetConfig(Config{CompressThreshold: 500, MaxCompressedSize: 100, MaxDecompressedSize: 1000})
	s.ErrorIs(err, ErrInvalidConfig)
	s.Equal(DefaultConfig(), s.codec.Config())
}

func writeTestString(buf *bytes.Buffer, str string) {
	_ = binary.Write(buf, binary.BigEndian, uint16(len(str)))
	buf.WriteString(str)
}
