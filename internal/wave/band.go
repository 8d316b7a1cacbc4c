package wave

// Band names the region the midnight meridian is crossing. It is a label
// for display and carries no weight in the membership test.
type Band string

const (
	BandPacific       Band = "band_pacific"
	BandAsia          Band = "band_asia"
	BandMiddleEast    Band = "band_middle_east"
	BandEurope        Band = "band_europe"
	BandAtlantic      Band = "band_atlantic"
	BandAmericas      Band = "band_americas"
	BandRemotePacific Band = "band_remote_pacific"
)

// Bands lists every band from the date line westward.
var Bands = []Band{
	BandPacific, BandAsia, BandMiddleEast, BandEurope,
	BandAtlantic, BandAmericas, BandRemotePacific,
}

// BandFor returns the band containing the normalized longitude lon.
func BandFor(lon float64) Band {
	lon = Normalize(lon)
	switch {
	case lon > 120:
		return BandPacific
	case lon > 60:
		return BandAsia
	case lon > 0:
		return BandMiddleEast
	case lon > -30:
		return BandEurope
	case lon > -90:
		return BandAtlantic
	case lon > -150:
		return BandAmericas
	}
	return BandRemotePacific
}
