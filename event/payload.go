package event

// Address is the common representation of a sockaddr captured for bind,
// connect and the address-carrying send/receive calls.
type Address struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// IovecSummary describes one element of an iovec array without retaining the
// actual bytes transferred (payload reconstruction is a non-goal).
type IovecSummary struct {
	Length int `json:"length"`
}

// SendFlags mirrors the bits of a send(2)/sendto(2)/sendmsg(2) flags argument
// as self-describing booleans rather than a raw bitmask, so a reader of the
// JSON does not need a flag table.
type SendFlags struct {
	DontRoute bool `json:"dontRoute"`
	DontWait  bool `json:"dontWait"`
	OOB       bool `json:"oob"`
	More      bool `json:"more"`
	NoSignal  bool `json:"noSignal"`
}

// RecvFlags mirrors the bits of a recv(2)/recvfrom(2)/recvmsg(2) flags
// argument, see SendFlags.
type RecvFlags struct {
	Peek      bool `json:"peek"`
	OOB       bool `json:"oob"`
	WaitAll   bool `json:"waitAll"`
	DontWait  bool `json:"dontWait"`
	Truncated bool `json:"truncated"`
}

type SocketPayload struct {
	Domain   string `json:"domain"`
	Type     string `json:"type"`
	Protocol int    `json:"protocol"`
}

type BindPayload struct {
	Addr      Address `json:"addr"`
	ForceBind bool    `json:"forceBind"`
}

type ConnectPayload struct {
	Addr Address `json:"addr"`
}

type ShutdownPayload struct {
	How string `json:"how"`
}

type ListenPayload struct {
	Backlog int `json:"backlog"`
}

type SetsockoptPayload struct {
	Level   int `json:"level"`
	Optname int `json:"optname"`
	Optval  int `json:"optval"`
}

type SendPayload struct {
	RequestedBytes int       `json:"requestedBytes"`
	SentBytes      int       `json:"sentBytes"`
	Flags          SendFlags `json:"flags"`
}

type RecvPayload struct {
	RequestedBytes  int       `json:"requestedBytes"`
	ReceivedBytes   int       `json:"receivedBytes"`
	Flags           RecvFlags `json:"flags"`
}

type SendtoPayload struct {
	RequestedBytes int       `json:"requestedBytes"`
	SentBytes      int       `json:"sentBytes"`
	Flags          SendFlags `json:"flags"`
	Addr           Address   `json:"addr"`
}

type RecvfromPayload struct {
	RequestedBytes int       `json:"requestedBytes"`
	ReceivedBytes  int       `json:"receivedBytes"`
	Flags          RecvFlags `json:"flags"`
	Addr           Address   `json:"addr"`
}

type SendmsgPayload struct {
	Iovecs    []IovecSummary `json:"iovecs"`
	SentBytes int            `json:"sentBytes"`
	Flags     SendFlags      `json:"flags"`
	Addr      *Address       `json:"addr,omitempty"`
}

type RecvmsgPayload struct {
	Iovecs        []IovecSummary `json:"iovecs"`
	ReceivedBytes int            `json:"receivedBytes"`
	Flags         RecvFlags      `json:"flags"`
	Addr          *Address       `json:"addr,omitempty"`
}

type WritePayload struct {
	RequestedBytes int `json:"requestedBytes"`
	WrittenBytes   int `json:"writtenBytes"`
}

type ReadPayload struct {
	RequestedBytes int `json:"requestedBytes"`
	ReadBytes      int `json:"readBytes"`
}

type ClosePayload struct{}

type WritevPayload struct {
	Iovecs       []IovecSummary `json:"iovecs"`
	WrittenBytes int            `json:"writtenBytes"`
}

type ReadvPayload struct {
	Iovecs    []IovecSummary `json:"iovecs"`
	ReadBytes int            `json:"readBytes"`
}

// TCPInfoPayload carries a point-in-time snapshot of the kernel's tcp_info
// structure. It is copied by value when sampled (Open Question O2): the
// kernel may reuse the backing getsockopt buffer across calls, so retaining
// a pointer into it would alias mutated state.
type TCPInfoPayload struct {
	State       string `json:"state"`
	RTT         uint32 `json:"rttMicros"`
	RTTVar      uint32 `json:"rttVarMicros"`
	SndCwnd     uint32 `json:"sndCwnd"`
	SndMss      uint32 `json:"sndMss"`
	RcvMss      uint32 `json:"rcvMss"`
	Retransmits uint8  `json:"retransmits"`
	TotalRetrans uint32 `json:"totalRetrans"`
}
