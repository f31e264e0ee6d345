package numbering

// beowulfSections follows the heorot.dk fitt numbering, which tracks the
// manuscript's Roman numerals. The manuscript has no fitt XXIIII; it is kept
// as an absent section so that IDs match the numerals.
var beowulfSections = []Section{
	{ID: 0, Name: "Prologue", Start: 1, End: 52},
	{ID: 1, Name: "I", Start: 53, End: 114},
	{ID: 2, Name: "II", Start: 115, End: 188},
	{ID: 3, Name: "III", Start: 189, End: 257},
	{ID: 4, Name: "IIII", Start: 258, End: 319},
	{ID: 5, Name: "V", Start: 320, End: 370},
	{ID: 6, Name: "VI", Start: 371, End: 455},
	{ID: 7, Name: "VII", Start: 456, End: 498},
	{ID: 8, Name: "VIII", Start: 499, End: 558},
	{ID: 9, Name: "VIIII", Start: 559, End: 661},
	{ID: 10, Name: "X", Start: 662, End: 709},
	{ID: 11, Name: "XI", Start: 710, End: 790},
	{ID: 12, Name: "XII", Start: 791, End: 836},
	{ID: 13, Name: "XIII", Start: 837, End: 924},
	{ID: 14, Name: "XIIII", Start: 925, End: 990},
	{ID: 15, Name: "XV", Start: 991, End: 1049},
	{ID: 16, Name: "XVI", Start: 1050, End: 1124},
	{ID: 17, Name: "XVII", Start: 1125, End: 1191},
	{ID: 18, Name: "XVIII", Start: 1192, End: 1250},
	{ID: 19, Name: "XVIIII", Start: 1251, End: 1320},
	{ID: 20, Name: "XX", Start: 1321, End: 1382},
	{ID: 21, Name: "XXI", Start: 1383, End: 1472},
	{ID: 22, Name: "XXII", Start: 1473, End: 1556},
	{ID: 23, Name: "XXIII", Start: 1557, End: 1650},
	{ID: 24, Name: "XXIIII", Absent: true},
	{ID: 25, Name: "XXV", Start: 1651, End: 1739},
	{ID: 26, Name: "XXVI", Start: 1740, End: 1816},
	{ID: 27, Name: "XXVII", Start: 1817, End: 1887},
	{ID: 28, Name: "XXVIII", Start: 1888, End: 1962},
	{ID: 29, Name: "XXVIIII", Start: 1963, End: 2038},
	{ID: 30, Name: "XXX", Start: 2039, End: 2143},
	{ID: 31, Name: "XXXI", Start: 2144, End: 2220},
	{ID: 32, Name: "XXXII", Start: 2221, End: 2311},
	{ID: 33, Name: "XXXIII", Start: 2312, End: 2390},
	{ID: 34, Name: "XXXIIII", Start: 2391, End: 2459},
	{ID: 35, Name: "XXXV", Start: 2460, End: 2601},
	{ID: 36, Name: "XXXVI", Start: 2602, End: 2693},
	{ID: 37, Name: "XXXVII", Start: 2694, End: 2751},
	{ID: 38, Name: "XXXVIII", Start: 2752, End: 2820},
	{ID: 39, Name: "XXXVIIII", Start: 2821, End: 2891},
	{ID: 40, Name: "XL", Start: 2892, End: 2945},
	{ID: 41, Name: "XLI", Start: 2946, End: 3057},
	{ID: 42, Name: "XLII", Start: 3058, End: 3136},
	{ID: 43, Name: "XLIII", Start: 3137, End: 3182},
}

// Line 2229 is lost to damage in the manuscript.
var beowulfAbsentLines = []int{2229}

// Irregular markers compensate for editorial renumbering around
// 386, 1167, 1704, 2228, 2231 and 2996.
var beowulfIrregularMarkers = []int{391, 1173, 1707, 2230, 2234, 2998}

// BeowulfTable returns the hand-curated numbering of Beowulf.
func BeowulfTable() Table {
	markers := make([]int, 0, 640)
	for n := 5; n <= 3178; n += 5 {
		markers = append(markers, n)
	}
	markers = append(markers, beowulfIrregularMarkers...)
	return Table{
		First:       1,
		Last:        3182,
		Sections:    beowulfSections,
		AbsentLines: beowulfAbsentLines,
		Markers:     markers,
	}
}

// Beowulf returns the Model for Beowulf. The table is static and known to be
// valid, so a construction failure is a programming error.
func Beowulf() *Model {
	m, err := New(BeowulfTable())
	if err != nil {
		panic("numbering: invalid Beowulf table: " + err.Error())
	}
	return m
}
