package competency

// Number of areas per variant in the INBDE framework.
const (
	FoundationKnowledgeCount = 10
	ClinicalContentCount     = 56
)

type areaText struct {
	name        string
	description string
}

var foundationKnowledge = [FoundationKnowledgeCount]areaText{
	{"Molecular, Cellular and Systems Biology", "Molecular, biochemical, cellular, and systems-level development, structure and function"},
	{"Physics and Chemistry of Technologies and Materials", "Physics and chemistry to explain the characteristics and use of technologies and materials"},
	{"Physics and Chemistry of Biology and Pathobiology", "Physics and chemistry to explain normal biology and pathobiology"},
	{"Genetic, Congenital and Developmental Conditions", "Principles of genetic, congenital and developmental diseases and conditions and their clinical features to understand patient risk"},
	{"Host Defense Mechanisms", "Cellular and molecular bases of immune and non-immune host defense mechanisms in the maintenance of oral and systemic health"},
	{"General and Disease-Specific Pathology", "General and disease-specific pathology to assess patient risk"},
	{"Microbiology", "Biology of microorganisms in physiology and pathology"},
	{"Pharmacology", "Pharmacology"},
	{"Behavioral Sciences, Ethics and Jurisprudence", "Behavioral sciences, ethics, and jurisprudence"},
	{"Research Methodology and Informatics", "Research methodology and analysis, and informatics tools"},
}

var clinicalContent = [ClinicalContentCount]areaText{
	// Diagnosis and Treatment Planning: CC1-CC20
	{"Patient Information", "Interpret patient information and medical data to inform clinical decision making"},
	{"Systemic Disease Manifestations", "Recognize the manifestations of systemic disease and how the disease and its management may affect the delivery of dental care"},
	{"Normal Clinical Findings", "Recognize the normal range of clinical findings and distinguish significant deviations that require monitoring, treatment, or management"},
	{"Predicting Diagnostic Results", "Predict the most likely diagnostic result given available patient information"},
	{"Interpreting Diagnostic Results", "Interpret diagnostic results to inform understanding of the patient's condition"},
	{"Diagnostic Tool Selection", "Select the diagnostic tools most likely to establish or confirm the diagnosis"},
	{"Radiographic Interpretation", "Interpret radiographic and imaging findings in the context of the clinical presentation"},
	{"Head and Neck Examination", "Perform and interpret the extraoral and intraoral head and neck examination"},
	{"Oral Mucosal Lesions", "Recognize and differentiate oral mucosal lesions and determine the need for biopsy or referral"},
	{"Caries Risk Assessment", "Assess caries risk and formulate a caries management plan"},
	{"Periodontal Assessment", "Assess periodontal status and formulate a periodontal diagnosis and prognosis"},
	{"Occlusal and TMJ Assessment", "Evaluate occlusion and temporomandibular function and identify disorders requiring management"},
	{"Pulpal and Periapical Diagnosis", "Establish pulpal and periapical diagnoses from clinical and radiographic findings"},
	{"Orofacial Pain", "Identify the likely source of orofacial pain and its differential diagnosis"},
	{"Growth and Development", "Assess craniofacial growth, development and the developing occlusion"},
	{"Medical Risk Assessment", "Assess the medical risk of dental treatment and identify the need for medical consultation"},
	{"Treatment Plan Formulation", "Formulate a comprehensive, prioritized and sequenced treatment plan"},
	{"Treatment Alternatives", "Present treatment alternatives, risks and benefits to inform patient decisions"},
	{"Informed Consent", "Obtain and document informed consent appropriate to the patient and procedure"},
	{"Referral and Interprofessional Care", "Recognize conditions that require referral and coordinate interprofessional care"},

	// Oral Health Management: CC21-CC46
	{"Infection Control", "Apply infection control and standard precautions in patient care"},
	{"Medical Emergencies", "Prevent, recognize and manage medical emergencies in the dental setting"},
	{"Local Anesthesia", "Select and administer local anesthesia and manage its complications"},
	{"Pain and Anxiety Control", "Manage pain and anxiety with pharmacological and non-pharmacological methods"},
	{"Pharmacotherapy", "Select, prescribe and monitor medications, considering interactions and adverse effects"},
	{"Preventive Care", "Provide preventive care including fluorides, sealants and dietary counseling"},
	{"Oral Hygiene Instruction", "Provide individualized oral hygiene instruction and motivational counseling"},
	{"Restorative Dentistry", "Restore teeth using appropriate materials and techniques"},
	{"Dental Materials Selection", "Select dental materials based on their properties and clinical indications"},
	{"Fixed Prosthodontics", "Manage partial edentulism and damaged teeth with fixed prosthodontics"},
	{"Removable Prosthodontics", "Manage partial and complete edentulism with removable prostheses"},
	{"Implant Dentistry", "Plan, restore and maintain dental implants"},
	{"Endodontic Therapy", "Manage pulpal and periapical disease with endodontic therapy"},
	{"Periodontal Therapy", "Manage periodontal diseases with non-surgical and surgical therapy"},
	{"Oral Surgery", "Perform extractions and minor oral surgical procedures and manage complications"},
	{"Pediatric Dentistry", "Manage the oral health of infants, children and adolescents"},
	{"Orthodontic Management", "Recognize and manage malocclusion and space maintenance needs"},
	{"Dental Trauma", "Diagnose and manage traumatic dental injuries"},
	{"Esthetic Dentistry", "Manage esthetic concerns with conservative and restorative approaches"},
	{"Special Needs Patients", "Manage the oral health of patients with special health care needs"},
	{"Geriatric Patients", "Manage the oral health of older adults"},
	{"Medically Complex Patients", "Modify dental care for patients with complex medical conditions"},
	{"Oral Pathology Management", "Manage oral diseases and conditions of the hard and soft tissues"},
	{"Tobacco and Substance Use", "Identify tobacco and substance use and provide cessation counseling or referral"},
	{"Maintenance and Recall", "Evaluate treatment outcomes and establish maintenance and recall intervals"},
	{"Complications Management", "Recognize and manage complications and unexpected outcomes of treatment"},

	// Practice and Profession: CC47-CC56
	{"Evidence-Based Practice", "Evaluate scientific literature and integrate evidence into clinical decisions"},
	{"Ethical Principles", "Apply ethical principles to professional decision making"},
	{"Jurisprudence and Regulation", "Practice in accordance with legal and regulatory requirements"},
	{"Patient Communication", "Communicate effectively with patients, families and caregivers"},
	{"Health Literacy and Cultural Competence", "Deliver care that accounts for health literacy, culture and social determinants of health"},
	{"Records and Documentation", "Maintain accurate, complete and confidential patient records"},
	{"Practice Management", "Apply principles of practice management, quality improvement and risk management"},
	{"Patient Safety", "Promote a culture of patient safety and error prevention"},
	{"Community and Public Health", "Promote oral health in the community and participate in public health initiatives"},
	{"Professional Development", "Engage in self-assessment and lifelong learning"},
}

func clinicalCategory(number int) Category {
	switch {
	case number <= 20:
		return CategoryDiagnosisTreatmentPlanning
	case number <= 46:
		return CategoryOralHealthManagement
	default:
		return CategoryPracticeProfession
	}
}

// Catalog returns the fixed INBDE catalog: 10 Foundation Knowledge areas followed by 56 Clinical Content areas.
func Catalog() []Area {
	areas := make([]Area, 0, FoundationKnowledgeCount+ClinicalContentCount)
	for i, txt := range foundationKnowledge {
		areas = append(areas, Area{
			ID:          AreaID(KindFoundationKnowledge, i+1),
			Kind:        KindFoundationKnowledge,
			Number:      i + 1,
			Name:        txt.name,
			Description: txt.description,
			IsActive:    true,
		})
	}
	for i, txt := range clinicalContent {
		areas = append(areas, Area{
			ID:          AreaID(KindClinicalContent, i+1),
			Kind:        KindClinicalContent,
			Number:      i + 1,
			Name:        txt.name,
			Description: txt.description,
			Category:    clinicalCategory(i + 1),
			IsActive:    true,
		})
	}
	return areas
}
