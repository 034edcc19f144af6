package site

import (
	"errors"
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// ErrBelowHorizon is returned when an airmass is requested for a target that
// has not risen.
var ErrBelowHorizon = errors.New("target below horizon")

// Observer holds a ground observer's geodetic location.
type Observer struct {
	LatRad, LonRad, AltM float64
}

// NewObserver creates an Observer from latitude and longitude in degrees and
// altitude in meters.
func NewObserver(latDeg, lonDeg, altM float64) Observer {
	return Observer{
		LatRad: latDeg * math.Pi / 180.0,
		LonRad: lonDeg * math.Pi / 180.0,
		AltM:   altM,
	}
}

// Paranal returns the Paranal observer.
func Paranal() Observer {
	return NewObserver(ParanalLatDeg, ParanalLonDeg, ParanalAltM)
}

// Equatorial holds ICRS-like right ascension and declination in degrees.
type Equatorial struct {
	RADeg  float64 `json:"ra_deg" validate:"gte=0,lt=360"`
	DecDeg float64 `json:"dec_deg" validate:"gte=-90,lte=90"`
}

// Horizontal holds altitude and azimuth in degrees. Azimuth is measured from
// North through East.
type Horizontal struct {
	AltitudeDeg float64
	AzimuthDeg  float64
}

// JulianDate converts a time.Time (UTC) to Julian Date.
// Uses the standard astronomical algorithm valid for dates after March 1, 4801 BC.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Adjust year/month for Jan/Feb (treat as months 13/14 of previous year).
	if m <= 2 {
		y -= 1
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + B - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd
}

// LocalSiderealTime returns the local mean sidereal time in radians, in
// [0, 2π), for the observer at t. GMST comes from the IAU-82 model in
// go-satellite.
func LocalSiderealTime(obs Observer, t time.Time) float64 {
	t = t.UTC()
	gmst := satellite.GSTimeFromDate(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	lst := math.Mod(gmst+obs.LonRad, 2*math.Pi)
	if lst < 0 {
		lst += 2 * math.Pi
	}
	return lst
}

// ToHorizontal computes the altitude and azimuth of target seen by obs at t.
// Precession and refraction are ignored.
func ToHorizontal(obs Observer, target Equatorial, t time.Time) Horizontal {
	ra := target.RADeg * math.Pi / 180.0
	dec := target.DecDeg * math.Pi / 180.0
	ha := LocalSiderealTime(obs, t) - ra

	sinLat, cosLat := math.Sin(obs.LatRad), math.Cos(obs.LatRad)
	sinDec, cosDec := math.Sin(dec), math.Cos(dec)
	sinHA, cosHA := math.Sin(ha), math.Cos(ha)

	sinAlt := sinLat*sinDec + cosLat*cosDec*cosHA
	alt := math.Asin(math.Max(-1, math.Min(1, sinAlt)))

	az := math.Atan2(-cosDec*sinHA, sinDec*cosLat-cosDec*sinLat*cosHA)
	if az < 0 {
		az += 2 * math.Pi
	}

	return Horizontal{
		AltitudeDeg: alt * 180.0 / math.Pi,
		AzimuthDeg:  az * 180.0 / math.Pi,
	}
}

// Airmass returns the relative air mass for an apparent altitude in degrees
// using the Kasten & Young (1989) formula, floored at 1 near the zenith.
func Airmass(altitudeDeg float64) (float64, error) {
	if altitudeDeg <= 0 {
		return 0, fmt.Errorf("%w: altitude %.2f deg", ErrBelowHorizon, altitudeDeg)
	}
	h := altitudeDeg * math.Pi / 180.0
	x := 1 / (math.Sin(h) + 0.50572*math.Pow(altitudeDeg+6.07995, -1.6364))
	return math.Max(x, 1), nil
}

// TargetAirmass returns the airmass of target seen by obs at t.
func TargetAirmass(obs Observer, target Equatorial, t time.Time) (float64, Horizontal, error) {
	hz := ToHorizontal(obs, target, t)
	x, err := Airmass(hz.AltitudeDeg)
	if err != nil {
		return 0, hz, err
	}
	return x, hz, nil
}

