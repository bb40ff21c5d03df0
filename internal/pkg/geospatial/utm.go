package geospatial

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// WGS 84 ellipsoid and UTM projection parameters.
const (
	semiMajorAxis  = 6378137.0
	flattening     = 1 / 298.257223563
	scaleFactor    = 0.9996
	falseEasting   = 500000.0
	falseNorthingS = 10000000.0

	minZone = 1
	maxZone = 60

	maxEasting  = 1000000.0
	maxNorthing = 10000000.0

	// Latitude bands C..X, skipping I and O. C..M lie south of the equator.
	bandLetters    = "CDEFGHJKLMNPQRSTUVWX"
	firstNorthBand = 'N'

	newtonTolerance = 1e-12
	newtonMaxIter   = 10
)

// ErrInvalidCoordinateInput is returned for out-of-range zones, bands, or offsets.
var ErrInvalidCoordinateInput = errors.New("invalid coordinate input")

// UTM is a point in the Universal Transverse Mercator grid.
type UTM struct {
	Easting  float64
	Northing float64
	Zone     int
	Band     byte
}

// Southern reports whether the band lies south of the equator.
func (u UTM) Southern() bool {
	return upper(u.Band) < firstNorthBand
}

func (u UTM) String() string {
	return fmt.Sprintf("%d%c %.3f %.3f", u.Zone, upper(u.Band), u.Easting, u.Northing)
}

// derived ellipsoid terms, computed once
var (
	eccentricity = math.Sqrt(flattening * (2 - flattening))
	thirdFlat    = flattening / (2 - flattening)
	rectifying   = rectifyingRadius(thirdFlat)
	alpha        = krugerAlpha(thirdFlat)
	beta         = krugerBeta(thirdFlat)
)

func rectifyingRadius(n float64) float64 {
	n2 := n * n
	return semiMajorAxis / (1 + n) * (1 + n2/4 + n2*n2/64 + n2*n2*n2/256)
}

func krugerAlpha(n float64) [6]float64 {
	n2, n3 := n*n, n*n*n
	n4, n5, n6 := n3*n, n3*n*n, n3*n3
	return [6]float64{
		n/2 - 2*n2/3 + 5*n3/16 + 41*n4/180 - 127*n5/288 + 7891*n6/37800,
		13*n2/48 - 3*n3/5 + 557*n4/1440 + 281*n5/630 - 1983433*n6/1935360,
		61*n3/240 - 103*n4/140 + 15061*n5/26880 + 167603*n6/181440,
		49561*n4/161280 - 179*n5/168 + 6601661*n6/7257600,
		34729*n5/80640 - 3418889*n6/1995840,
		212378941 * n6 / 319334400,
	}
}

func krugerBeta(n float64) [6]float64 {
	n2, n3 := n*n, n*n*n
	n4, n5, n6 := n3*n, n3*n*n, n3*n3
	return [6]float64{
		n/2 - 2*n2/3 + 37*n3/96 - n4/360 - 81*n5/512 + 96199*n6/604800,
		n2/48 + n3/15 - 437*n4/1440 + 46*n5/105 - 1118711*n6/3870720,
		17*n3/480 - 37*n4/840 - 209*n5/4480 + 5569*n6/90720,
		4397*n4/161280 - 11*n5/504 - 830251*n6/7257600,
		4583*n5/161280 - 108847*n6/3991680,
		20648693 * n6 / 638668800,
	}
}

// CentralMeridian returns the central meridian of a zone in degrees.
func CentralMeridian(zone int) float64 {
	return float64((zone-1)*6-180) + 3
}

// ValidBand reports whether b is a UTM latitude band letter (case-insensitive).
func ValidBand(b byte) bool {
	return strings.IndexByte(bandLetters, upper(b)) >= 0
}

// Validate checks zone, band and offsets without converting.
func (u UTM) Validate() error {
	switch {
	case u.Zone < minZone || u.Zone > maxZone:
		return fmt.Errorf("%w: zone %d", ErrInvalidCoordinateInput, u.Zone)
	case !ValidBand(u.Band):
		return fmt.Errorf("%w: band %q", ErrInvalidCoordinateInput, u.Band)
	case !finite(u.Easting) || !finite(u.Northing):
		return fmt.Errorf("%w: non-finite offset", ErrInvalidCoordinateInput)
	case u.Easting < 0 || u.Easting > maxEasting:
		return fmt.Errorf("%w: easting %.3f", ErrInvalidCoordinateInput, u.Easting)
	case u.Northing < 0 || u.Northing > maxNorthing:
		return fmt.Errorf("%w: northing %.3f", ErrInvalidCoordinateInput, u.Northing)
	}
	return nil
}

// ToLatLon converts a UTM coordinate to WGS 84 latitude and longitude in degrees.
func ToLatLon(u UTM) (lat, lon float64, err error) {
	if err := u.Validate(); err != nil {
		return 0, 0, err
	}

	northing := u.Northing
	if u.Southern() {
		northing -= falseNorthingS
	}

	eta := (u.Easting - falseEasting) / (scaleFactor * rectifying)
	xi := northing / (scaleFactor * rectifying)

	xiP, etaP := xi, eta
	for j := 1; j <= 6; j++ {
		k := 2 * float64(j)
		xiP -= beta[j-1] * math.Sin(k*xi) * math.Cosh(k*eta)
		etaP -= beta[j-1] * math.Cos(k*xi) * math.Sinh(k*eta)
	}

	sinhEtaP := math.Sinh(etaP)
	sinXiP := math.Sin(xiP)
	cosXiP := math.Cos(xiP)

	tauP := sinXiP / math.Sqrt(sinhEtaP*sinhEtaP+cosXiP*cosXiP)
	tau := solveConformal(tauP)

	lat = math.Atan(tau) * 180 / math.Pi
	lon = math.Atan2(sinhEtaP, cosXiP)*180/math.Pi + CentralMeridian(u.Zone)
	return lat, lon, nil
}

// FromLatLon projects a WGS 84 position into the given zone.
func FromLatLon(lat, lon float64, zone int) (UTM, error) {
	if zone < minZone || zone > maxZone {
		return UTM{}, fmt.Errorf("%w: zone %d", ErrInvalidCoordinateInput, zone)
	}
	if !finite(lat) || !finite(lon) || lat < -80 || lat > 84 || lon < -180 || lon > 180 {
		return UTM{}, fmt.Errorf("%w: lat %.6f lon %.6f", ErrInvalidCoordinateInput, lat, lon)
	}

	phi := toRad(lat)
	lambda := toRad(lon - CentralMeridian(zone))

	tau := math.Tan(phi)
	tauP := conformalTau(tau)

	cosLambda := math.Cos(lambda)
	xiP := math.Atan2(tauP, cosLambda)
	etaP := math.Asinh(math.Sin(lambda) / math.Sqrt(tauP*tauP+cosLambda*cosLambda))

	xi, eta := xiP, etaP
	for j := 1; j <= 6; j++ {
		k := 2 * float64(j)
		xi += alpha[j-1] * math.Sin(k*xiP) * math.Cosh(k*etaP)
		eta += alpha[j-1] * math.Cos(k*xiP) * math.Sinh(k*etaP)
	}

	u := UTM{
		Easting:  scaleFactor*rectifying*eta + falseEasting,
		Northing: scaleFactor * rectifying * xi,
		Zone:     zone,
		Band:     bandFor(lat),
	}
	if u.Northing < 0 {
		u.Northing += falseNorthingS
	}
	return u, nil
}

// conformalTau maps tan(geodetic latitude) to tan(conformal latitude).
func conformalTau(tau float64) float64 {
	sigma := math.Sinh(eccentricity * math.Atanh(eccentricity*tau/math.Sqrt(1+tau*tau)))
	return tau*math.Sqrt(1+sigma*sigma) - sigma*math.Sqrt(1+tau*tau)
}

// solveConformal inverts conformalTau by Newton-Raphson.
func solveConformal(tauP float64) float64 {
	e2 := eccentricity * eccentricity
	tau := tauP
	for i := 0; i < newtonMaxIter; i++ {
		tauI := conformalTau(tau)
		delta := (tauP - tauI) / math.Sqrt(1+tauI*tauI) *
			(1 + (1-e2)*tau*tau) / ((1 - e2) * math.Sqrt(1+tau*tau))
		tau += delta
		if math.Abs(delta) <= newtonTolerance {
			break
		}
	}
	return tau
}

// bandFor returns the latitude band letter for lat in [-80, 84].
func bandFor(lat float64) byte {
	i := int(math.Floor((lat + 80) / 8))
	if i < 0 {
		i = 0
	}
	if i >= len(bandLetters) {
		i = len(bandLetters) - 1
	}
	return bandLetters[i]
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
