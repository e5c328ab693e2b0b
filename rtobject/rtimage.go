// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rtobject

import (
	"fmt"

	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/volume"
)

// RTImage is a portal image or digitally reconstructed radiograph. Image is placed with its first
// pixel at the origin; the geometry engine moves it into the treatment room.
type RTImage struct {
	Header

	Label       string
	Name        string
	Description string

	Image *volume.Volume

	// SID is the source to image plane distance and SAD the source to axis distance, in millimetres.
	SID float64
	SAD float64
	// Position is the x and y coordinate of the upper left corner of the image in the image
	// receptor frame.
	Position [2]float64

	GantryAngle     float64
	CouchAngle      float64
	CollimatorAngle float64

	WindowCenter float64
	WindowWidth  float64

	ReferencedPlanSOPInstanceUID string
	ReferencedBeamNumber         int
}

// ReadRTImage reads an RT image object.
func ReadRTImage(ds *dicom.DataSet) (*RTImage, error) {
	r := &RTImage{Header: readHeader(ds), SAD: DefaultSourceAxisDistance}
	if r.SOPClassUID != dicom.RTImageStorage {
		return nil, fmt.Errorf("SOP class %q: %w", r.SOPClassUID, ErrUnsupportedSOPClass)
	}
	r.Label, _ = ds.FindString(dicom.RTImageLabelTag)
	r.Name, _ = ds.FindString(dicom.RTImageNameTag)
	r.Description, _ = ds.FindString(dicom.RTImageDescriptionTag)

	r.SID, _ = ds.FindFloat64(dicom.RTImageSIDTag)
	if sad, ok := ds.FindFloat64(dicom.RadiationMachineSADTag); ok {
		r.SAD = sad
	}
	if pos, ok := ds.FindFloat64s(dicom.RTImagePositionTag); ok && len(pos) == 2 {
		r.Position = [2]float64{pos[0], pos[1]}
	}
	r.GantryAngle, _ = ds.FindFloat64(dicom.GantryAngleTag)
	r.CouchAngle, _ = ds.FindFloat64(dicom.PatientSupportAngleTag)
	r.CollimatorAngle, _ = ds.FindFloat64(dicom.BeamLimitingDeviceAngleTag)
	r.WindowCenter, _ = ds.FindFloat64(dicom.WindowCenterTag)
	r.WindowWidth, _ = ds.FindFloat64(dicom.WindowWidthTag)
	r.ReferencedPlanSOPInstanceUID = firstReferencedInstance(ds, dicom.ReferencedRTPlanSequenceTag)
	r.ReferencedBeamNumber, _ = ds.FindInt(dicom.ReferencedBeamNumberTag)

	f, err := readPixelFormat(ds)
	if err != nil {
		return nil, fmt.Errorf("reading RT image: %w", err)
	}
	f.frames = 1
	values, err := decodePixels(ds, f)
	if err != nil {
		return nil, fmt.Errorf("reading RT image: %w", err)
	}
	if slope, ok := ds.FindFloat64(dicom.RescaleSlopeTag); ok {
		intercept, _ := ds.FindFloat64(dicom.RescaleInterceptTag)
		for i := range values {
			values[i] = values[i]*slope + intercept
		}
	}

	spacing := geom.Vec3{1, 1, 1}
	if s, ok := ds.FindFloat64s(dicom.ImagePlanePixelSpacingTag); ok && len(s) == 2 {
		spacing[0], spacing[1] = s[1], s[0]
	}
	// Pixel axes are taken as the patient axes and converted to RAS.
	ijkToRAS := geom.LPSToRASMatrix().Mul(geom.Scaling(spacing))
	r.Image = volume.New([3]int{f.columns, f.rows, 1}, ijkToRAS)
	copy(r.Image.Scalars, values)
	return r, nil
}
