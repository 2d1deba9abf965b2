package dicom

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedContext is returned when the SOP class / transfer syntax
	// combination of a dataset is not accepted for storage.
	ErrUnsupportedContext = errors.New("unsupported presentation context")
)

// ImplicitVRLittleEndian is assumed when a dataset names no transfer syntax.
const ImplicitVRLittleEndian = "1.2.840.10008.1.2"

var imageSOPClasses = map[string]string{
	"1.2.840.10008.5.1.4.1.1.1":      "Computed Radiography Image Storage",
	"1.2.840.10008.5.1.4.1.1.1.1":    "Digital X-Ray Image Storage - For Presentation",
	"1.2.840.10008.5.1.4.1.1.1.2":    "Digital Mammography X-Ray Image Storage - For Presentation",
	"1.2.840.10008.5.1.4.1.1.2":      "CT Image Storage",
	"1.2.840.10008.5.1.4.1.1.2.1":    "Enhanced CT Image Storage",
	"1.2.840.10008.5.1.4.1.1.3.1":    "Ultrasound Multi-frame Image Storage",
	"1.2.840.10008.5.1.4.1.1.4":      "MR Image Storage",
	"1.2.840.10008.5.1.4.1.1.4.1":    "Enhanced MR Image Storage",
	"1.2.840.10008.5.1.4.1.1.6.1":    "Ultrasound Image Storage",
	"1.2.840.10008.5.1.4.1.1.7":      "Secondary Capture Image Storage",
	"1.2.840.10008.5.1.4.1.1.12.1":   "X-Ray Angiographic Image Storage",
	"1.2.840.10008.5.1.4.1.1.20":     "Nuclear Medicine Image Storage",
	"1.2.840.10008.5.1.4.1.1.128":    "Positron Emission Tomography Image Storage",
	"1.2.840.10008.5.1.4.1.1.481.1":  "RT Image Storage",
	"1.2.840.10008.5.1.4.1.1.77.1.4": "VL Photographic Image Storage",
	"1.2.840.10008.5.1.4.1.1.13.1.3": "Breast Tomosynthesis Image Storage",
}

var extendedSOPClasses = map[string]string{
	"1.2.840.10008.5.1.4.1.1.104.1": "Encapsulated PDF Storage",
	"1.2.840.10008.5.1.4.1.1.88.11": "Basic Text SR Storage",
	"1.2.840.10008.5.1.4.1.1.88.22": "Enhanced SR Storage",
	"1.2.840.10008.5.1.4.1.1.88.33": "Comprehensive SR Storage",
	"1.2.840.10008.5.1.4.1.1.88.59": "Key Object Selection Document Storage",
	"1.2.840.10008.5.1.4.1.1.481.2": "RT Dose Storage",
	"1.2.840.10008.5.1.4.1.1.481.3": "RT Structure Set Storage",
	"1.2.840.10008.5.1.4.1.1.481.5": "RT Plan Storage",
	"1.2.840.10008.5.1.4.1.1.66":    "Raw Data Storage",
	"1.2.840.10008.5.1.4.1.1.66.4":  "Segmentation Storage",
}

var transferSyntaxes = map[string]string{
	ImplicitVRLittleEndian:   "Implicit VR Little Endian",
	"1.2.840.10008.1.2.1":    "Explicit VR Little Endian",
	"1.2.840.10008.1.2.1.99": "Deflated Explicit VR Little Endian",
	"1.2.840.10008.1.2.2":    "Explicit VR Big Endian",
	"1.2.840.10008.1.2.4.50": "JPEG Baseline",
	"1.2.840.10008.1.2.4.51": "JPEG Extended",
	"1.2.840.10008.1.2.4.57": "JPEG Lossless",
	"1.2.840.10008.1.2.4.70": "JPEG Lossless SV1",
	"1.2.840.10008.1.2.4.80": "JPEG-LS Lossless",
	"1.2.840.10008.1.2.4.81": "JPEG-LS Near Lossless",
	"1.2.840.10008.1.2.4.90": "JPEG 2000 Lossless",
	"1.2.840.10008.1.2.4.91": "JPEG 2000",
	"1.2.840.10008.1.2.5":    "RLE Lossless",
}

// CheckDataset reports whether ds may be committed. A nil error means the
// combination of SOP class and transfer syntax is accepted; extended
// contexts additionally admit non-image storage classes.
func CheckDataset(ds *Dataset, useExtendedContexts bool) error {
	sopClass := ds.Get(SOPClassUID)
	if sopClass == "" {
		return fmt.Errorf("%w: missing %s", ErrUnsupportedContext, SOPClassUID)
	}

	_, ok := imageSOPClasses[sopClass]
	if !ok && useExtendedContexts {
		_, ok = extendedSOPClasses[sopClass]
	}
	if !ok {
		return fmt.Errorf("%w: sop class %s", ErrUnsupportedContext, sopClass)
	}

	syntax := ds.Get(TransferSyntaxUID)
	if syntax == "" {
		syntax = ImplicitVRLittleEndian
	}
	if _, ok := transferSyntaxes[syntax]; !ok {
		return fmt.Errorf("%w: transfer syntax %s", ErrUnsupportedContext, syntax)
	}

	return nil
}
