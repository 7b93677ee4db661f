// Package geo — пространственный лиф: точки, bbox, grid-ячейки и расстояния.
// Не зависит от остальных пакетов и не держит состояния.
package geo

import (
	"fmt"
	"math"
)

// CellSizeDeg — ребро grid-ячейки в градусах. Усечение до двух знаков
// дает ~1.1 км на экваторе и сужается по долготе к полюсам; это
// принятая аппроксимация, равномерность ячеек нигде не требуется.
const CellSizeDeg = 0.01

// Point — координата WGS84 в градусах. Value type, не мутируется.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

// Valid проверяет диапазоны координат
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// BBox — прямоугольная область по границам север/юг/восток/запад
type BBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Valid — границы в диапазоне и согласованы между собой
func (b BBox) Valid() bool {
	return b.South <= b.North && b.West <= b.East &&
		Point{Lat: b.North, Lon: b.East}.Valid() &&
		Point{Lat: b.South, Lon: b.West}.Valid()
}

// Contains — включительно по всем границам
func (b BBox) Contains(p Point) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lon >= b.West && p.Lon <= b.East
}

// CellKey — детерминированный ключ grid-ячейки, например "52.22:21.01"
type CellKey string

// CellOf усекает координаты до ребра ячейки: floor(x*100)/100.
// Одна и та же точка всегда дает один и тот же ключ.
func CellOf(p Point) CellKey {
	return cellFromHundredths(hundredths(p.Lat), hundredths(p.Lon))
}

// CellsCovering перечисляет все ячейки, пересекающие bbox, включая
// ячейки на самих границах. Шагаем по сотым долям в целых числах,
// чтобы не накапливать ошибку float.
func CellsCovering(b BBox) []CellKey {
	latLo, latHi := hundredths(b.South), hundredths(b.North)
	lonLo, lonHi := hundredths(b.West), hundredths(b.East)

	keys := make([]CellKey, 0, (latHi-latLo+1)*(lonHi-lonLo+1))
	for la := latLo; la <= latHi; la++ {
		for lo := lonLo; lo <= lonHi; lo++ {
			keys = append(keys, cellFromHundredths(la, lo))
		}
	}
	return keys
}

func hundredths(deg float64) int {
	return int(math.Floor(deg * 100))
}

func cellFromHundredths(lat, lon int) CellKey {
	return CellKey(fmt.Sprintf("%.2f:%.2f", float64(lat)/100, float64(lon)/100))
}

// metersPerDegreeLat — длина градуса широты, метров
const metersPerDegreeLat = 111_320.0

// BoundingBoxAround строит bbox, описывающий круг center+radius.
// Долготный размах масштабируется cos(широты); у полюсов вырождается
// в полный диапазон долгот.
func BoundingBoxAround(center Point, radiusMeters float64) BBox {
	latDelta := radiusMeters / metersPerDegreeLat

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	lonDelta := 180.0
	if cosLat > 1e-6 {
		lonDelta = radiusMeters / (metersPerDegreeLat * cosLat)
	}

	return BBox{
		North: math.Min(center.Lat+latDelta, 90),
		South: math.Max(center.Lat-latDelta, -90),
		East:  math.Min(center.Lon+lonDelta, 180),
		West:  math.Max(center.Lon-lonDelta, -180),
	}
}
