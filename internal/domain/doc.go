// Package domain models geofenced disaster alerts and the notifications
// derived from them.
//
// # Alert identity
//
// Every alert carries a deterministic content hash over its type, title,
// coordinates, and calendar date (see [AlertHash]). The hash is the unit of
// duplicate suppression: source adapters may report the same hazard on every
// poll, and across restarts, without the user ever seeing it twice. Date
// granularity means a hazard that recurs the next day is a new event and
// gets a fresh hash.
//
// The delivery layer uses a second, coarser hash over title, message, and
// location only (see [NotificationHash]) so that the same warning phrased
// identically by two different feeds still collapses to one notification.
//
// # Severity classification
//
// The four-level scale (low, moderate, high, critical) is shared by all
// source adapters and drives both notification priority and consolidation
// ranking:
//
//	Rain:  probability ≥80% and ≥10mm over 12h; critical at ≥90% probability
//	Heat:  ≥40°C high | ≥45°C critical
//	Cold:  ≤-10°C high | ≤-20°C critical
//	Wind:  ≥70 km/h high | ≥100 km/h critical
//	Quake: ≥M6.0 high | ≥M7.0 critical | else moderate (M4.5 floor)
//	Flood: ≥50mm/24h or ≥20mm/h high | ≥100mm/24h or ≥30mm/h critical
//
// Thresholds separate "genuinely dangerous" from "routine" to avoid alert
// fatigue; they are tunable policy, not incidental constants, and live in
// the config package with these defaults.
//
// # Consolidation
//
// [Consolidate] merges the official advisory feed with supplementary
// international feeds into one ranked list. Fixed per-source priority bands
// keep the authoritative source on top of severity ties. See [RankBands].
package domain
