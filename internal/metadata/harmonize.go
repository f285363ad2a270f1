package metadata

// HarmonizeSingleIntoList implements spec.md §4.3's harmonization pass:
// for a (single, list) field pair, fold the single value into the list
// when both are present; an empty list is simply dropped in favor of the
// single value becoming the sole list entry.
func HarmonizeSingleIntoList(single string, list []string) []string {
	if single == "" {
		return list
	}
	if len(list) == 0 {
		return []string{single}
	}
	for _, v := range list {
		if v == single {
			return list
		}
	}
	return append(list, single)
}
