package app

import "math"

// Tier is one of four discrete adaptation modes derived from network stats.
type Tier string

const (
	TierNormal       Tier = "normal"
	TierDegradeVideo Tier = "degrade-video"
	TierAudioOnly    Tier = "audio-only"
	TierCaptionsOnly Tier = "captions-only"
)

// NetworkStats carries a client-reported network sample. Zero values mean
// "not reported": rtt and loss default to perfect, bandwidth to 1000 kbps.
type NetworkStats struct {
	RTT        float64 `json:"rtt"`        // milliseconds
	PacketLoss float64 `json:"packetLoss"` // ratio 0..1
	Bandwidth  float64 `json:"bandwidth"`  // kbps
}

func (s NetworkStats) normalized() (rtt, loss, bw float64) {
	rtt = s.RTT
	loss = s.PacketLoss
	bw = s.Bandwidth
	if bw == 0 {
		bw = 1000
	}
	return
}

// EvaluateNetwork maps a network sample to an adaptation tier. Pure: no
// state, no side effects. Thresholds are checked worst-first.
func EvaluateNetwork(s NetworkStats) Tier {
	rtt, loss, bw := s.normalized()

	switch {
	case loss >= 0.15 || rtt >= 500 || bw < 100:
		return TierCaptionsOnly
	case loss >= 0.08 || rtt >= 300 || bw < 200:
		return TierAudioOnly
	case loss >= 0.03 || rtt >= 150 || bw < 500:
		return TierDegradeVideo
	default:
		return TierNormal
	}
}

// Suggestions returns human-readable advice for the reported conditions.
func Suggestions(s NetworkStats) []string {
	rtt, loss, bw := s.normalized()

	var out []string
	if rtt > 200 {
		out = append(out, "High latency detected. Consider using a closer server or checking the network route.")
	}
	if loss > 0.05 {
		out = append(out, "Packet loss detected. Check network stability and Wi-Fi signal strength.")
	}
	if bw < 500 {
		out = append(out, "Low bandwidth detected. Close other applications using the internet or upgrade the connection.")
	}
	if rtt < 50 && loss < 0.01 && bw > 1000 {
		out = append(out, "Network conditions are excellent for high-quality video calls.")
	}
	return out
}

// QualityMetrics is a 0-100 scoring of a network sample.
type QualityMetrics struct {
	OverallScore   float64 `json:"overall_score"`
	RTTScore       float64 `json:"rtt_score"`
	LossScore      float64 `json:"loss_score"`
	BandwidthScore float64 `json:"bandwidth_score"`
	QualityLevel   string  `json:"quality_level"`
}

// Metrics scores the sample: rtt perfect at 0ms and zero at 500ms+, loss
// perfect at 0% and zero at 20%+, bandwidth perfect at 1000kbps+.
func Metrics(s NetworkStats) QualityMetrics {
	rtt, loss, bw := s.normalized()

	rttScore := clamp(100 - rtt/5)
	lossScore := clamp(100 - loss*500)
	bwScore := clamp(bw / 10)
	overall := rttScore*0.3 + lossScore*0.4 + bwScore*0.3

	return QualityMetrics{
		OverallScore:   round1(overall),
		RTTScore:       round1(rttScore),
		LossScore:      round1(lossScore),
		BandwidthScore: round1(bwScore),
		QualityLevel:   qualityLevel(overall),
	}
}

func qualityLevel(score float64) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Good"
	case score >= 40:
		return "Fair"
	case score >= 20:
		return "Poor"
	default:
		return "Critical"
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
