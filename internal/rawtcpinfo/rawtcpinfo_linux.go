//go:build linux

package rawtcpinfo

import (
	"syscall"
	"unsafe"

	"github.com/netsnitch/netsnitch/internal/kernelver"
)

func init() {
	running, err := kernelver.Detect()
	if err != nil {
		// Can't observe tcp_info at all without a kernel version; treat
		// every gated field as unavailable rather than panicking at
		// package init time.
		return
	}
	adaptToKernelVersion(func(want string) bool {
		wantVer, perr := kernelver.Parse(want + ".0")
		if perr != nil {
			return false
		}
		return kernelver.AtLeast(running, wantVer)
	})
}

// RawTCPInfo has identical memory layout to the Linux kernel's struct
// tcp_info, current as of kernel 6.7. bitfield0 and bitfield1 capture the
// four packed sub-byte fields.
type RawTCPInfo struct {
	state                uint8
	caState              uint8
	retransmits          uint8
	probes               uint8
	backoff              uint8
	options              uint8
	bitfield0            uint8
	bitfield1            uint8
	rto                  uint32
	ato                  uint32
	sndMSS               uint32
	rcvMSS               uint32
	unacked              uint32
	sacked               uint32
	lost                 uint32
	retrans              uint32
	fackets              uint32
	lastDataSent         uint32
	lastAckSent          uint32
	lastDataRecv         uint32
	lastAckRecv          uint32
	pmtu                 uint32
	rcvSSThresh          uint32
	rtt                  uint32
	rttvar               uint32
	sndSSThresh          uint32
	sndCwnd              uint32
	advmss               uint32
	reordering           uint32
	rcvRTT               uint32
	rcvSpace             uint32
	totalRetrans         uint32
	pacingRate           uint64
	maxPacingRate        uint64
	bytesAcked           uint64
	bytesReceived        uint64
	segsOut              uint32
	segsIn               uint32
	notsentBytes         uint32
	minRTT               uint32
	dataSegsIn           uint32
	dataSegsOut          uint32
	deliveryRate         uint64
	busyTime             uint64
	rwndLimited          uint64
	sndbufLimited        uint64
	delivered            uint32
	deliveredCE          uint32
	bytesSent            uint64
	bytesRetrans         uint64
	dsackDups            uint32
	reordSeen            uint32
	rcvOOOPack           uint32
	sndWnd               uint32
	rcvWnd               uint32
	rehash               uint32
	totalRTO             uint16
	totalRTORecoveries   uint16
	totalRTOTime         uint32
}

// Info is a gopher-style unpacked representation of RawTCPInfo, with fields
// added after kernel 2.6.2 reported via pointers that are nil when the
// running kernel predates that field.
type Info struct {
	State        uint8  `tcpi:"name=state,prom_type=gauge"`
	CAState      uint8  `tcpi:"name=ca_state,prom_type=gauge"`
	Retransmits  uint8  `tcpi:"name=retransmits,prom_type=gauge"`
	Backoff      uint8  `tcpi:"name=backoff,prom_type=gauge"`
	SndWScale    uint8  `tcpi:"name=snd_wscale,prom_type=gauge"`
	RcvWScale    uint8  `tcpi:"name=rcv_wscale,prom_type=gauge"`
	RTO          uint32 `tcpi:"name=rto,prom_type=gauge"`
	ATO          uint32 `tcpi:"name=ato,prom_type=gauge"`
	SndMSS       uint32 `tcpi:"name=snd_mss,prom_type=gauge"`
	RcvMSS       uint32 `tcpi:"name=rcv_mss,prom_type=gauge"`
	RTT          uint32 `tcpi:"name=rtt,prom_type=gauge"`
	RTTVar       uint32 `tcpi:"name=rttvar,prom_type=gauge"`
	SndCwnd      uint32 `tcpi:"name=snd_cwnd,prom_type=gauge"`
	AdvMSS       uint32 `tcpi:"name=advmss,prom_type=gauge"`
	TotalRetrans uint32 `tcpi:"name=total_retrans,prom_type=counter"`

	PacingRate    *uint64 `tcpi:"name=pacing_rate,prom_type=gauge"`
	BytesAcked    *uint64 `tcpi:"name=bytes_acked,prom_type=counter"`
	BytesReceived *uint64 `tcpi:"name=bytes_received,prom_type=counter"`
	SegsOut       *uint32 `tcpi:"name=segs_out,prom_type=counter"`
	SegsIn        *uint32 `tcpi:"name=segs_in,prom_type=counter"`
	DeliveryRate  *uint64 `tcpi:"name=delivery_rate,prom_type=gauge"`
	BytesSent     *uint64 `tcpi:"name=bytes_sent,prom_type=counter"`
	BytesRetrans  *uint64 `tcpi:"name=bytes_retrans,prom_type=counter"`
	RcvWnd        *uint32 `tcpi:"name=rcv_wnd,prom_type=gauge"`
	SndWnd        *uint32 `tcpi:"name=snd_wnd,prom_type=gauge"`
}

// Unpack copies RawTCPInfo fields into Info, leaving fields the running
// kernel does not support as nil.
func (raw *RawTCPInfo) Unpack() *Info {
	info := &Info{
		State:       raw.state,
		CAState:     raw.caState,
		Retransmits: raw.retransmits,
		Backoff:     raw.backoff,
		SndWScale:   raw.bitfield0 & 0x0f,
		RcvWScale:   raw.bitfield0 >> 4,
		RTO:         raw.rto,
		ATO:         raw.ato,
		SndMSS:      raw.sndMSS,
		RcvMSS:      raw.rcvMSS,
		RTT:         raw.rtt,
		RTTVar:      raw.rttvar,
		SndCwnd:     raw.sndCwnd,
		AdvMSS:      raw.advmss,
		TotalRetrans: raw.totalRetrans,
	}

	if atLeast3_15 {
		info.PacingRate = &raw.pacingRate
	}
	if atLeast4_1 {
		info.BytesAcked = &raw.bytesAcked
		info.BytesReceived = &raw.bytesReceived
	}
	if atLeast4_2 {
		info.SegsOut = &raw.segsOut
		info.SegsIn = &raw.segsIn
	}
	if atLeast4_9 {
		info.DeliveryRate = &raw.deliveryRate
	}
	if atLeast4_19 {
		info.BytesSent = &raw.bytesSent
		info.BytesRetrans = &raw.bytesRetrans
	}
	if atLeast5_4 {
		info.SndWnd = &raw.sndWnd
	}
	if atLeast6_2 {
		info.RcvWnd = &raw.rcvWnd
	}

	return info
}

// Get calls getsockopt(2) for TCP_INFO on fd and returns the unpacked
// result, grounded on the teacher's pkg/tcpinfo GetTCPInfo.
func Get(fd int) (*Info, error) {
	if !atLeast2_6_2 {
		return nil, ErrKernelTooOld
	}

	var raw RawTCPInfo
	length := uint32(sizeOfRawTCPInfo)

	_, _, errno := syscall.Syscall6(
		syscall.SYS_GETSOCKOPT,
		uintptr(fd),
		uintptr(syscall.SOL_TCP),
		uintptr(syscall.TCP_INFO),
		uintptr(unsafe.Pointer(&raw)),
		uintptr(unsafe.Pointer(&length)),
		0,
	)
	if errno != 0 {
		return nil, errno
	}

	return raw.Unpack(), nil
}
